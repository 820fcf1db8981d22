package cardnews

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func TestTopicSlug(t *testing.T) {
	assert.Equal(t, "골프-웨어", TopicSlug(" 골프 웨어 "))
	assert.Equal(t, "b2b-saas", TopicSlug("B2B SaaS!"))
	assert.Equal(t, "cardnews", TopicSlug("!!!"))
	assert.Equal(t, "cardnews", TopicSlug(""))
}

func TestMarketResearchDirections(t *testing.T) {
	boring := MarketResearch("골프 웨어", DirectionBoring)
	tooNew := MarketResearch("골프 웨어", DirectionTooNew)

	assert.Contains(t, boring.Trend[0], "골프 웨어")
	assert.NotEqual(t, boring.PainPoints, tooNew.PainPoints)
	assert.NotEqual(t, boring.Opportunities, tooNew.Opportunities)
	assert.Equal(t, boring.Audience, tooNew.Audience)
}

func TestPlanCardsShape(t *testing.T) {
	research := MarketResearch("골프 웨어", DirectionBoring)
	cards := PlanCards("골프 웨어", DirectionBoring, research)

	require.Len(t, cards, CardCount)
	for i, c := range cards {
		assert.Equal(t, i+1, c.Index)
		assert.NotEmpty(t, c.Title)
		assert.NotEmpty(t, c.Bullets)
		assert.NotEmpty(t, c.Insight)
	}
	assert.Contains(t, cards[0].Subtitle, "너무 지루한 시장")

	tooNew := PlanCards("골프 웨어", DirectionTooNew, research)
	assert.Contains(t, tooNew[0].Subtitle, "너무 새로운 시장")
}

func TestRenderHTML(t *testing.T) {
	cards := PlanCards("골프 웨어", DirectionBoring, MarketResearch("골프 웨어", DirectionBoring))

	html, err := RenderHTML(cards, "강한 임팩트")
	require.NoError(t, err)
	assert.Contains(t, html, "#0E0E12")
	assert.Contains(t, html, "#01")
	assert.Contains(t, html, "골프 웨어 카드뉴스")
	assert.Equal(t, CardCount, strings.Count(html, "<section class='card'>"))

	// Unknown preset falls back instead of erroring.
	html, err = RenderHTML(cards, "does-not-exist")
	require.NoError(t, err)
	assert.Contains(t, html, "#F6F7FB")
}

func TestBuildBundle(t *testing.T) {
	clock := &fixedClock{t: time.Date(2026, 8, 29, 18, 0, 0, 0, time.Local)}

	bundle, err := Build("골프 웨어", DirectionBoring, DefaultStyle, clock)
	require.NoError(t, err)
	assert.Equal(t, "골프-웨어_cardnews_2026-08-29.zip", bundle.FileName)
	require.Len(t, bundle.Cards, CardCount)

	zr, err := zip.NewReader(bytes.NewReader(bundle.Zip), int64(len(bundle.Zip)))
	require.NoError(t, err)
	names := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = f
	}
	require.Contains(t, names, "골프-웨어_2026-08-29/market_and_cards.json")
	require.Contains(t, names, "골프-웨어_2026-08-29/cardnews_preview.html")
	require.Contains(t, names, "골프-웨어_2026-08-29/cardnews_summary.md")

	rc, err := names["골프-웨어_2026-08-29/market_and_cards.json"].Open()
	require.NoError(t, err)
	defer rc.Close()
	var payload struct {
		Topic       string `json:"topic"`
		GeneratedAt string `json:"generated_at"`
		Cards       []Card `json:"cards"`
	}
	require.NoError(t, json.NewDecoder(rc).Decode(&payload))
	assert.Equal(t, "골프 웨어", payload.Topic)
	assert.Equal(t, "2026-08-29", payload.GeneratedAt)
	assert.Len(t, payload.Cards, CardCount)
}

func TestBuildRejectsBadInput(t *testing.T) {
	clock := &fixedClock{t: time.Now()}

	_, err := Build("", DirectionBoring, DefaultStyle, clock)
	assert.Error(t, err)

	_, err = Build("골프 웨어", Direction("sideways"), DefaultStyle, clock)
	assert.Error(t, err)
}
