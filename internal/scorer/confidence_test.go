package scorer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/attribution-cli/internal/model"
)

func TestScore_Formula(t *testing.T) {
	t.Parallel()

	s := New(nil)
	tests := []struct {
		name string
		c    model.AttributionCandidate
		want float64
	}{
		{
			name: "getty full",
			c: model.AttributionCandidate{
				SourceURL: "https://www.gettyimages.com/detail/123", Creator: "A", Title: "T", License: "L",
				DateCreated: "2020-01-01", Keywords: []string{"k"}, Location: "X", Status: model.StatusSuccess,
			},
			want: 1.0,
		},
		{
			name: "unlisted creator only",
			c:    model.AttributionCandidate{SourceURL: "https://blog.example/p", Creator: "A", Status: model.StatusPartial},
			want: 0.3,
		},
		{
			name: "pexels creator title license",
			c: model.AttributionCandidate{
				SourceURL: "https://www.pexels.com/photo/1/", Creator: "A", Title: "T", License: "Pexels License",
				Status: model.StatusSuccess,
			},
			// 8/11*0.3 + 0.3 + 0.15 + 0.1
			want: 0.768,
		},
		{
			name: "failed on top domain",
			c:    model.AttributionCandidate{SourceURL: "https://www.gettyimages.com/detail/1", Status: model.StatusFailed},
			want: Floor,
		},
		{
			name: "unlisted title only",
			c:    model.AttributionCandidate{SourceURL: "https://blog.example/p", Title: "T", Status: model.StatusPartial},
			want: Floor,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, s.Score(tt.c), 0.001)
		})
	}
}

func TestScore_AlwaysInBounds(t *testing.T) {
	t.Parallel()

	s := New(nil)
	hosts := append([]string{"unknown.example"}, DefaultPriorityDomains...)
	for _, host := range hosts {
		for mask := range 64 {
			c := model.AttributionCandidate{SourceURL: "https://" + host + "/x"}
			if mask&1 != 0 {
				c.Creator = "c"
			}
			if mask&2 != 0 {
				c.Title = "t"
			}
			if mask&4 != 0 {
				c.License = "l"
			}
			if mask&8 != 0 {
				c.DateCreated = "2020-01-01"
			}
			if mask&16 != 0 {
				c.Keywords = []string{"k"}
			}
			if mask&32 != 0 {
				c.Location = "here"
			}
			c.Finalize()
			got := s.Score(c)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	}
}

func TestRank_FailedNeverOutranksSuccessAtEqualPriority(t *testing.T) {
	t.Parallel()

	s := New(nil)
	cands := []model.AttributionCandidate{
		{SourceURL: "https://www.pexels.com/photo/1/", Status: model.StatusFailed, Error: "blocked"},
		{SourceURL: "https://www.pexels.com/photo/2/", Creator: "A", Title: "T", Status: model.StatusSuccess},
	}
	s.Apply(cands)
	Rank(cands)
	assert.Equal(t, model.StatusSuccess, cands[0].Status)
	assert.Equal(t, Floor, cands[1].Confidence)
}

func TestRank_TieBreakers(t *testing.T) {
	t.Parallel()

	cands := []model.AttributionCandidate{
		{SourceURL: "https://b.example", Confidence: 0.5, Title: "T"},
		{SourceURL: "https://c.example", Confidence: 0.5, Creator: "A"},
		{SourceURL: "https://a.example", Confidence: 0.5, Creator: "A", Title: "T"},
		{SourceURL: "https://d.example", Confidence: 0.9},
		{SourceURL: "https://a0.example", Confidence: 0.5, Creator: "A"},
	}
	Rank(cands)

	var got []string
	for _, c := range cands {
		got = append(got, c.SourceURL)
	}
	assert.Equal(t, []string{
		"https://d.example",
		"https://a.example",
		"https://a0.example",
		"https://c.example",
		"https://b.example",
	}, got)
}

func TestPriorities_OfAndSort(t *testing.T) {
	t.Parallel()

	p := NewPriorities(nil)
	assert.Equal(t, 11, p.Of("https://www.gettyimages.com/detail/1"))
	assert.Equal(t, 11, p.Of("https://media.gettyimages.com/id/1/x.jpg"))
	assert.Equal(t, 3, p.Of("https://stock.adobe.com/images/1"))
	assert.Equal(t, 0, p.Of("https://adobe.com/x"))
	assert.Equal(t, 0, p.Of("::bad"))

	in := []string{
		"https://z.example/1",
		"https://www.pexels.com/photo/9/",
		"https://a.example/1",
		"https://www.gettyimages.com/detail/1",
		"https://www.pexels.com/photo/1/",
	}
	assert.Equal(t, []string{
		"https://www.gettyimages.com/detail/1",
		"https://www.pexels.com/photo/1/",
		"https://www.pexels.com/photo/9/",
		"https://a.example/1",
		"https://z.example/1",
	}, p.Sort(in))
	assert.Equal(t, "https://z.example/1", in[0], "input is not modified")
}

func TestLoadPriorities(t *testing.T) {
	t.Parallel()

	p, err := LoadPriorities("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPriorityDomains, p.Domains())

	dir := t.TempDir()
	path := filepath.Join(dir, "priorities.yaml")
	require.NoError(t, os.WriteFile(path, []byte("priority_domains:\n  - www.Example.com\n  - other.org\n"), 0o600))

	p, err = LoadPriorities(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com", "other.org"}, p.Domains())
	assert.Equal(t, 2, p.Of("https://example.com/a"))

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("other: 1\n"), 0o600))
	_, err = LoadPriorities(empty)
	assert.Error(t, err)

	_, err = LoadPriorities(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
