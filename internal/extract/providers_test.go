package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/attribution-cli/internal/model"
)

func fromRegistry(t *testing.T, pageURL, markup string) model.AttributionCandidate {
	t.Helper()
	s, ok := NewRegistry(nil, nil).StrategyFor(pageURL).(*PageStrategy)
	if !ok {
		t.Fatalf("strategy for %s is not a page strategy", pageURL)
	}
	return s.FromDocument(mustParse(t, markup), pageURL)
}

func TestPexels_Markup(t *testing.T) {
	t.Parallel()

	c := fromRegistry(t, "https://www.pexels.com/photo/green-leaf-1234/", `<html><head>
<meta property="og:title" content="Green Leaf · Free Stock Photo">
</head><body>
<a href="/@photos-by-lina/"><h3>Lina Kivaka</h3></a>
<a href="/@someone-else/">Other</a>
</body></html>`)

	assert.Equal(t, "pexels", c.Source)
	assert.Equal(t, "Lina Kivaka", c.Creator)
	assert.Equal(t, "https://www.pexels.com/@photos-by-lina/", c.CreatorURL)
	assert.Equal(t, "Green Leaf", c.Title)
	assert.Equal(t, "Pexels License", c.License)
	assert.Equal(t, model.StatusSuccess, c.Status)
}

func TestPexels_JSONLDCreatorWins(t *testing.T) {
	t.Parallel()

	c := fromRegistry(t, "https://www.pexels.com/photo/x-1/", `<html><head>
<script type="application/ld+json">{"@type":"ImageObject","name":"X","creator":{"name":"LD Person"},"license":"https://www.pexels.com/license/"}</script>
</head><body><a href="/@markup/">Markup Person</a></body></html>`)

	assert.Equal(t, "LD Person", c.Creator)
	assert.Equal(t, "Pexels License", c.License, "the fixed label overrides JSON-LD")
}

func TestUnsplash_TwitterCreator(t *testing.T) {
	t.Parallel()

	c := fromRegistry(t, "https://unsplash.com/photos/abc", `<html><head>
<meta name="twitter:creator" content="@janedoe">
<meta property="og:title" content="Mountain lake">
</head></html>`)
	assert.Equal(t, "janedoe", c.Creator)
	assert.Equal(t, "Unsplash License", c.License)
}

func TestUnsplash_ProfileLink(t *testing.T) {
	t.Parallel()

	c := fromRegistry(t, "https://unsplash.com/photos/abc", `<html><body><a href="/@kai">Kai Pilger</a></body></html>`)
	assert.Equal(t, "Kai Pilger", c.Creator)
	assert.Equal(t, "https://unsplash.com/@kai", c.CreatorURL)
}

func TestPixabay_UserLink(t *testing.T) {
	t.Parallel()

	c := fromRegistry(t, "https://pixabay.com/photos/tree-123/", `<html><body><a href="/users/bernswaelz-1728198/">Bernswaelz</a></body></html>`)
	assert.Equal(t, "Bernswaelz", c.Creator)
	assert.Equal(t, "Pixabay License", c.License)
}

func TestFlickr_OwnerAndLicense(t *testing.T) {
	t.Parallel()

	c := fromRegistry(t, "https://www.flickr.com/photos/someone/123/", `<html><body>
<a class="owner-name truncate" href="/photos/someone/">Some One</a>
<a href="https://creativecommons.org/licenses/by-nc/2.0/">Some rights reserved</a>
</body></html>`)
	assert.Equal(t, "Some One", c.Creator)
	assert.Equal(t, "https://www.flickr.com/photos/someone/", c.CreatorURL)
	assert.Equal(t, "CC BY-NC 2.0", c.License)
}

func TestFlickr_AllRightsReserved(t *testing.T) {
	t.Parallel()

	c := fromRegistry(t, "https://flickr.com/photos/someone/123/", `<html><body><a class="attribution" href="/photos/x/">X</a></body></html>`)
	assert.Equal(t, "All Rights Reserved", c.License)
}

func TestShutterstock_Contributor(t *testing.T) {
	t.Parallel()

	c := fromRegistry(t, "https://www.shutterstock.com/image-photo/cat-123", `<html><head>
<title>Cat on a sofa - Shutterstock ID 123</title></head><body>
<a href="/g/catlover">Cat Lover</a></body></html>`)
	assert.Equal(t, "Cat Lover", c.Creator)
	assert.Equal(t, "Cat on a sofa", c.Title)
	assert.Equal(t, "Shutterstock License (Paid)", c.License)
}

func TestGetty_LicenseFromText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		body string
		want string
	}{
		{"rights managed", "https://www.gettyimages.com/detail/photo/1", "License type: Rights-managed", "Rights Managed"},
		{"royalty free", "https://www.gettyimages.com/detail/photo/1", "Royalty Free creative image", "Royalty Free"},
		{"editorial", "https://www.gettyimages.com/detail/news-photo/1", "Editorial use only", "Editorial"},
		{"getty label", "https://www.gettyimages.com/detail/photo/1", "nothing here", "Getty Images License (Paid)"},
		{"istock label", "https://www.istockphoto.com/photo/1", "nothing here", "iStock License (Paid)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := fromRegistry(t, tt.url, `<html><head><meta name="artist" content="Pat Kay"></head><body><p>`+tt.body+`</p></body></html>`)
			assert.Equal(t, tt.want, c.License)
			assert.Equal(t, "Pat Kay", c.Creator)
		})
	}
}

func TestAlamy_Contributor(t *testing.T) {
	t.Parallel()

	c := fromRegistry(t, "https://www.alamy.com/stock-photo-boat-123.html", `<html><body><a href="/stock-photo/contributor/abc">Harbour Pics</a></body></html>`)
	assert.Equal(t, "Harbour Pics", c.Creator)
	assert.Equal(t, "Alamy License (Paid)", c.License)
}

func TestAdobe_FixedLicense(t *testing.T) {
	t.Parallel()

	c := fromRegistry(t, "https://stock.adobe.com/images/abc/123", `<html><head><title>Sunset</title></head></html>`)
	assert.Equal(t, "adobe_stock", c.Source)
	assert.Equal(t, "Adobe Stock License (Paid)", c.License)
}

func TestNews_CreditElement(t *testing.T) {
	t.Parallel()

	c := fromRegistry(t, "https://www.reuters.com/world/story", `<html><head><title>Story</title></head><body>
<span class="image-credit">REUTERS/Kim Kyung-Hoon</span></body></html>`)
	assert.Equal(t, "news", c.Source)
	assert.Equal(t, "Kim Kyung-Hoon", c.Creator)
	assert.Equal(t, "Editorial", c.License)

	c = fromRegistry(t, "https://apnews.com/article/1", `<html><body><div class="Byline">Jane Roe</div></body></html>`)
	assert.Equal(t, "Jane Roe", c.Creator)
}
