package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUIManagerPrintf(t *testing.T) {
	var buf bytes.Buffer

	(&StandardUIManager{out: &buf}).Printf("Saved notes as %s\n", "3f2a9c")
	(&StandardUIManager{quiet: true, out: &buf}).Printf("hidden\n")

	assert.Equal(t, "Saved notes as 3f2a9c\n", buf.String())
}

func TestQuietProgressBarsAreSilent(t *testing.T) {
	ui := NewUIManager(true)

	bar := ui.NewProgressBar(3, "Transcribing audio")
	bar.ChangeMax(5)
	bar.Set(2)
	bar.Describe("Transcribing chunk 3/5")
	bar.Finish()

	spinner := ui.NewSpinner("Fetching transcript...")
	spinner.Finish()

	_, silent := bar.(*SilentProgressBar)
	assert.True(t, silent)
}
