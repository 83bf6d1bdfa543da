package metadata

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/bep/imagemeta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/attribution-cli/internal/model"
)

func newCollected() *collected {
	return &collected{
		iptc: map[string][]string{},
		exif: map[string][]string{},
		xmp:  map[string][]string{},
	}
}

func TestRecord_IPTCWinsOverEXIF(t *testing.T) {
	c := newCollected()
	c.exif["Artist"] = []string{"Exif Artist"}
	c.exif["Copyright"] = []string{"© Exif"}
	c.exif["DateTimeOriginal"] = []string{"2021:06:15 10:30:00"}
	c.iptc["Byline"] = []string{"Jane Doe"}
	c.iptc["ObjectName"] = []string{"Red fox"}
	c.iptc["Keywords"] = []string{"fox", "snow, winter", "Fox"}
	c.iptc["City"] = []string{"Oslo"}
	c.iptc["CountryPrimaryLocationName"] = []string{"Norway"}

	rec := c.record()
	require.NotNil(t, rec)
	assert.Equal(t, "Jane Doe", rec.Creator)
	assert.Equal(t, "© Exif", rec.Copyright)
	assert.Equal(t, "Red fox", rec.Title)
	assert.Equal(t, "2021-06-15", rec.DateCreated)
	assert.Equal(t, []string{"fox", "snow", "winter"}, rec.Keywords)
	assert.Equal(t, "Oslo, Norway", rec.Location)
}

func TestRecord_XMPFallback(t *testing.T) {
	c := newCollected()
	c.xmp["Creator"] = []string{"", "Xmp Creator"}
	c.xmp["Subject"] = []string{"lake"}

	rec := c.record()
	require.NotNil(t, rec)
	assert.Equal(t, "Xmp Creator", rec.Creator)
	assert.Equal(t, []string{"lake"}, rec.Keywords)
}

func TestRecord_CopyrightOnly(t *testing.T) {
	c := newCollected()
	c.iptc["CopyrightNotice"] = []string{"© Agency"}

	rec := c.record()
	require.NotNil(t, rec)
	assert.Empty(t, rec.Creator)
	assert.Equal(t, "© Agency", rec.Copyright)
}

func TestRecord_NothingUseful(t *testing.T) {
	c := newCollected()
	c.iptc["ObjectName"] = []string{"Untitled"}
	assert.Nil(t, c.record())
}

func TestCollected_AddNormalizesIPTCNames(t *testing.T) {
	c := newCollected()
	c.add(imagemeta.IPTC, "By-line", []string{"Jane Doe"})
	c.add(imagemeta.IPTC, "Caption-Abstract", []string{"A fox"})
	c.add(imagemeta.EXIF, "Artist", []string{"Exif Artist"})

	assert.Equal(t, "Jane Doe", first(c.iptc, "Byline"))
	assert.Equal(t, "A fox", first(c.iptc, "CaptionAbstract"))
	assert.Equal(t, "Exif Artist", first(c.exif, "Artist"))
}

func TestRecord_Candidate(t *testing.T) {
	rec := &Record{Creator: "Jane Doe", DateCreated: "2020-01-02"}
	cand := rec.Candidate("https://cdn.example.com/a.jpg")

	assert.Equal(t, Source, cand.Source)
	assert.Equal(t, "https://cdn.example.com/a.jpg", cand.SourceURL)
	assert.Equal(t, "© 2020 Jane Doe", cand.Copyright)
	assert.Equal(t, model.StatusSuccess, cand.Status)
	assert.Equal(t, 1.0, cand.Confidence)
}

func TestNormalizeDate(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"2021:06:15 10:30:00": "2021-06-15",
		"20210615":            "2021-06-15",
		"2021-06-15":          "2021-06-15",
		"2021:06:15":          "2021-06-15",
		"":                    "",
		"sometime":            "sometime",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeDate(in), in)
	}
}

func TestTagValues(t *testing.T) {
	assert.Equal(t, []string{"a"}, tagValues("a"))
	assert.Equal(t, []string{"a", "b"}, tagValues([]string{"a", "b"}))
	assert.Equal(t, []string{"a"}, tagValues([]any{"a", 3}))
	assert.Equal(t, []string{"2020-02-03"}, tagValues(time.Date(2020, 2, 3, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, tagValues(42))
}

func TestImagemetaReader_NoMetadata(t *testing.T) {
	r := NewReader()
	assert.Nil(t, r.Read(nil))
	assert.Nil(t, r.Read([]byte("not an image")))

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil))
	assert.Nil(t, r.Read(buf.Bytes()))
}
