package form

import (
	"sync"
	"testing"
	"time"

	"casesearch/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submission struct {
	text string
	dr   *models.DateRange
}

type collector struct {
	mu  sync.Mutex
	got []submission
}

func (c *collector) onSearch(text string, dr *models.DateRange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, submission{text: text, dr: dr})
}

func (c *collector) all() []submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]submission(nil), c.got...)
}

func TestValidatingFormRejectsBlankText(t *testing.T) {
	c := &collector{}
	f := New(Config{RequireText: true}, c.onSearch)

	for _, text := range []string{"", "   ", "\t\n"} {
		f.SetText(text)
		assert.False(t, f.Submit())
	}
	assert.Empty(t, c.all())

	f.SetText("  contract dispute ")
	assert.True(t, f.Submit())
	require.Len(t, c.all(), 1)
	assert.Equal(t, "contract dispute", c.all()[0].text)
	assert.Nil(t, c.all()[0].dr)
}

func TestValidatingFormAcceptsDateRangeWithoutText(t *testing.T) {
	c := &collector{}
	f := New(Config{RequireText: true}, c.onSearch)

	f.ToggleDateRange(true)
	f.SetDateRange("2024-01-01", "")
	assert.False(t, f.Submit())
	assert.Empty(t, f.DateRangeLabel())

	f.SetDateRange("2024-01-01", "2024-01-31")
	assert.Equal(t, "Searching cases from January 1, 2024 to January 31, 2024", f.DateRangeLabel())
	assert.True(t, f.Submit())
	require.Len(t, c.all(), 1)
	require.NotNil(t, c.all()[0].dr)
	assert.Equal(t, "2024-01-31", c.all()[0].dr.EndParam())

	f.ToggleDateRange(false)
	assert.Empty(t, f.DateRangeLabel())
	assert.Nil(t, f.DateRange())
}

func TestInvalidDateRangeIsIgnored(t *testing.T) {
	f := New(Config{}, nil)
	f.ToggleDateRange(true)

	f.SetDateRange("2024-02-01", "2024-01-01")
	assert.Nil(t, f.DateRange())

	f.SetDateRange("yesterday", "2024-01-01")
	assert.Nil(t, f.DateRange())
}

func TestNonValidatingFormSubmitsEmpty(t *testing.T) {
	c := &collector{}
	f := New(Config{}, c.onSearch)

	assert.True(t, f.Submit())
	require.Len(t, c.all(), 1)
	assert.Equal(t, "", c.all()[0].text)
}

func TestVoiceUpdateAutoSubmits(t *testing.T) {
	c := &collector{}
	f := New(Config{RequireText: true, AutoSubmitDelay: 20 * time.Millisecond}, c.onSearch)
	defer f.Close()

	f.VoiceUpdate("قضية رقم خمسة")
	assert.Equal(t, "قضية رقم خمسة", f.Text())
	assert.Empty(t, c.all())

	require.Eventually(t, func() bool { return len(c.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "قضية رقم خمسة", c.all()[0].text)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, c.all(), 1)
}

func TestFiredAutoSubmitsAreReleased(t *testing.T) {
	c := &collector{}
	f := New(Config{RequireText: true, AutoSubmitDelay: 100 * time.Millisecond}, c.onSearch)
	defer f.Close()

	f.VoiceUpdate("lease")
	f.VoiceUpdate("lease break")
	assert.Equal(t, 2, f.pending())

	require.Eventually(t, func() bool { return len(c.all()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, f.pending())
	texts := []string{c.all()[0].text, c.all()[1].text}
	assert.ElementsMatch(t, []string{"lease", "lease break"}, texts)
}

func TestCloseCancelsAutoSubmit(t *testing.T) {
	c := &collector{}
	f := New(Config{AutoSubmitDelay: 30 * time.Millisecond}, c.onSearch)

	f.VoiceUpdate("late")
	f.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, c.all())
}
