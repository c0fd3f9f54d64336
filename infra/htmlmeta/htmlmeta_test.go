package htmlmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html><head>
<title>An &amp; Article</title>
<meta charset="utf-8">
<meta property="og:title" content="OG Title">
<meta property="og:title" content="Second OG Title">
<meta property="og:type" content="article">
<meta name="twitter:image" content="https://cdn.example.com/card.png">
<meta name="Description" content="  A page about things. ">
<meta name="empty" content="">
<link rel="canonical" href="https://example.com/a">
<link rel="icon" href="/favicon-32.png" sizes="32x32">
<link rel="icon" href="/favicon-16.png" sizes="16x16">
<link rel="apple-touch-icon" href="touch.png" sizes="180x180">
<link rel="mask-icon" href="/mask.svg">
<link rel="stylesheet" href="/style.css">
</head><body><title>not the title</title></body></html>`

func TestExtractProperties(t *testing.T) {
	props := ExtractProperties(page)

	assert.Equal(t, "An & Article", props["title"])
	assert.Equal(t, "OG Title", props["og:title"], "first occurrence wins")
	assert.Equal(t, "article", props["og:type"])
	assert.Equal(t, "https://cdn.example.com/card.png", props["twitter:image"])
	assert.Equal(t, "A page about things.", props["description"])
	assert.Equal(t, "https://example.com/a", props["canonical"])
	assert.NotContains(t, props, "empty")
}

func TestExtractProperties_EntitiesDecodedOnce(t *testing.T) {
	props := ExtractProperties(`<html><head>
<title>Use &amp;lt;b&amp;gt; tags</title>
<meta property="og:title" content="Use &amp;lt;b&amp;gt; tags">
</head></html>`)

	assert.Equal(t, "Use &lt;b&gt; tags", props["title"])
	assert.Equal(t, props["og:title"], props["title"])
}

func TestIconCandidates_OrderAndResolution(t *testing.T) {
	icons := IconCandidates(page, "https://example.com/blog/post")
	require.Len(t, icons, 3)

	assert.Equal(t, "https://example.com/blog/touch.png", icons[0].URL)
	assert.Equal(t, 180, icons[0].Size)
	assert.Equal(t, "https://example.com/favicon-32.png", icons[1].URL)
	assert.Equal(t, "https://example.com/favicon-16.png", icons[2].URL)
}

func TestIconCandidates_BaseHref(t *testing.T) {
	icons := IconCandidates(`<head><base href="https://static.example.net/assets/"><link rel="shortcut icon" href="fav.ico"></head>`, "https://example.com/")
	require.Len(t, icons, 1)
	assert.Equal(t, "https://static.example.net/assets/fav.ico", icons[0].URL)
}

func TestIconCandidates_None(t *testing.T) {
	assert.Empty(t, IconCandidates("<html><head></head></html>", "https://example.com"))
}
