package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

func TestEstimateSizeMB(t *testing.T) {
	assert.Equal(t, int64(100), EstimateSizeMB(8_000_000, 100))
	assert.Equal(t, int64(38), EstimateSizeMB(3_000_000, 100))
	assert.Equal(t, int64(0), EstimateSizeMB(3_000_000, 0))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "38 MB", FormatSize(38))
	assert.Equal(t, "999 MB", FormatSize(999))
	assert.Equal(t, "1.0 GB", FormatSize(1000))
	assert.Equal(t, "3.6 GB", FormatSize(3600))
}

func TestQualityChoices(t *testing.T) {
	options := []models.QualityOption{
		{ID: "1080p", Height: 1080, Bandwidth: 8_000_000, Label: "1080p"},
		{ID: "480p", Height: 480, Bandwidth: 3_000_000, Label: "480p"},
	}

	t.Run("with known range", func(t *testing.T) {
		choices := QualityChoices(options, 100, true)
		require.Len(t, choices, 3)
		assert.Equal(t, models.QualityAuto, choices[0].ID)
		assert.Nil(t, choices[0].EstimateMB)

		require.NotNil(t, choices[1].EstimateMB)
		assert.Equal(t, int64(100), *choices[1].EstimateMB)
		assert.Equal(t, "~100 MB", choices[1].Detail)
		require.NotNil(t, choices[2].EstimateMB)
		assert.Equal(t, int64(38), *choices[2].EstimateMB)
	})

	t.Run("without duration shows bitrate", func(t *testing.T) {
		choices := QualityChoices(options, 0, false)
		require.Len(t, choices, 3)
		assert.Nil(t, choices[1].EstimateMB)
		assert.Equal(t, "8.0 Mbps", choices[1].Detail)
		assert.Equal(t, "3.0 Mbps", choices[2].Detail)
	})

	t.Run("auto only", func(t *testing.T) {
		choices := QualityChoices(nil, 100, true)
		require.Len(t, choices, 1)
		assert.Equal(t, models.QualityAuto, choices[0].ID)
	})
}

func TestController_QualitySelector(t *testing.T) {
	c, _ := loadedVideoController(t, 100, "/downloads")

	v := c.View()
	require.Len(t, v.Qualities, 3)
	assert.Equal(t, models.QualityAuto, v.Quality)
	assert.Equal(t, "1080p", v.Qualities[1].ID)
	assert.Equal(t, int64(100), *v.Qualities[1].EstimateMB)
	assert.Equal(t, "480p", v.Qualities[2].ID)
	assert.Equal(t, int64(38), *v.Qualities[2].EstimateMB)

	// the estimate follows the range, the selection does not
	require.NoError(t, c.SelectQuality("480p"))
	require.NoError(t, c.SetRange(FieldStart, "00:00:50"))
	v = c.View()
	assert.Equal(t, "480p", v.Quality)
	assert.Equal(t, int64(50), *v.Qualities[1].EstimateMB)
	assert.Equal(t, int64(19), *v.Qualities[2].EstimateMB)

	err := c.SelectQuality("4k")
	assert.ErrorIs(t, err, ErrUnknownQuality)
	assert.Equal(t, "480p", c.View().Quality)

	require.NoError(t, c.SelectQuality(models.QualityAuto))
	assert.Equal(t, models.QualityAuto, c.View().Quality)
}
