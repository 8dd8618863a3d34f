package reembed

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	t.Run("reports at interval boundaries", func(t *testing.T) {
		var buf bytes.Buffer
		tracker := NewProgressTracker(&buf, 100, 25)
		tracker.Start()

		tracker.Update(10)
		assert.Empty(t, buf.String())

		tracker.Update(25)
		assert.Contains(t, buf.String(), "25/100")

		tracker.Update(80)
		assert.Contains(t, buf.String(), "80/100")
	})

	t.Run("finish reports completion", func(t *testing.T) {
		var buf bytes.Buffer
		tracker := NewProgressTracker(&buf, 10, 100)
		tracker.Start()
		tracker.Update(4)
		tracker.Finish()

		assert.Contains(t, buf.String(), "10/10")
		assert.Contains(t, buf.String(), "100.0%")
		assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	})

	t.Run("update before start is ignored", func(t *testing.T) {
		var buf bytes.Buffer
		tracker := NewProgressTracker(&buf, 10, 1)
		tracker.Update(5)
		assert.Empty(t, buf.String())
	})

	t.Run("caps progress at total", func(t *testing.T) {
		var buf bytes.Buffer
		tracker := NewProgressTracker(&buf, 10, 1)
		tracker.Start()
		tracker.Update(50)
		assert.Contains(t, buf.String(), "10/10")
	})
}
