package main

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/capture"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

var captureTemplates = template.Must(template.New("capture").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>CHZZK login</title></head>
<body>
{{if .Done}}
<p>Login captured. You can close this page.</p>
{{else if not .Open}}
<p>No login capture is in progress.</p>
{{else}}
<p>Sign in at <a href="{{.LoginURL}}" target="_blank" rel="noopener">{{.LoginURL}}</a>, then paste the
NID_AUT and NID_SES cookie values below.</p>
{{if .Error}}<p style="color:#c00">{{.Error}}</p>{{end}}
<form method="post" action="{{.Action}}">
<input type="hidden" name="token" value="{{.Token}}">
<label>NID_AUT <input type="text" name="nid_aut" autocomplete="off"></label><br>
<label>NID_SES <input type="text" name="nid_ses" autocomplete="off"></label><br>
<button type="submit">Save</button>
</form>
{{end}}
</body>
</html>`))

type capturePage struct {
	Open     bool
	Done     bool
	Token    string
	Action   string
	LoginURL string
	Error    string
}

// formAction keeps the access token on the form post, since a browser form
// cannot carry the bearer header
func formAction(c *gin.Context) string {
	action := "/capture"
	if token := c.Query("access_token"); token != "" {
		action += "?" + url.Values{"access_token": {token}}.Encode()
	}
	return action
}

func (api *API) captureForm(c *gin.Context) {
	open, token := api.surface.State()
	status := http.StatusOK
	if !open {
		status = http.StatusNotFound
	}

	c.HTML(status, "capture", capturePage{
		Open:     open,
		Token:    token,
		Action:   formAction(c),
		LoginURL: capture.LoginURL,
	})
}

func (api *API) submitCapture(c *gin.Context) {
	creds := models.Credentials{
		AuthToken:    c.PostForm("nid_aut"),
		SessionToken: c.PostForm("nid_ses"),
	}

	err := api.surface.Complete(c.Request.Context(), c.PostForm("token"), creds)
	if err == nil {
		c.HTML(http.StatusOK, "capture", capturePage{Done: true})
		return
	}

	open, token := api.surface.State()
	page := capturePage{
		Open:     open,
		Token:    token,
		Action:   formAction(c),
		LoginURL: capture.LoginURL,
		Error:    err.Error(),
	}

	switch {
	case errors.Is(err, capture.ErrNotOpen):
		c.HTML(http.StatusConflict, "capture", page)
	case errors.Is(err, capture.ErrInvalidToken):
		c.HTML(http.StatusForbidden, "capture", page)
	case errors.Is(err, capture.ErrIncomplete):
		c.HTML(http.StatusBadRequest, "capture", page)
	default:
		api.logger.ErrorWithErr("Failed to complete login capture", err)
		c.HTML(http.StatusInternalServerError, "capture", page)
	}
}
