// Package cardnews builds a ten-card marketing deck for a topic through a
// fixed research, planning, design, delivery pipeline.
package cardnews

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/apc-golf/refhub/internal/refs"
)

// CardCount is the fixed deck size.
const CardCount = 10

// Direction characterizes the market the deck targets.
type Direction string

// Supported market directions.
const (
	DirectionBoring Direction = "boring"
	DirectionTooNew Direction = "too_new"
)

// Card is one page of the deck.
type Card struct {
	Index    int      `json:"index"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Bullets  []string `json:"bullets"`
	Insight  string   `json:"insight"`
}

// Research is the deterministic market sketch the cards are planned from.
type Research struct {
	Audience      string   `json:"audience"`
	Trend         []string `json:"trend"`
	PainPoints    []string `json:"pain_points"`
	Opportunities []string `json:"opportunities"`
}

var topicSlugRe = regexp.MustCompile(`[^a-z0-9가-힣]+`)

// TopicSlug normalizes a topic into the bundle file prefix.
func TopicSlug(topic string) string {
	slug := topicSlugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(topic)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "cardnews"
	}
	return slug
}

// MarketResearch sketches audience, trend, pain, and opportunity lines for
// the topic and direction.
func MarketResearch(topic string, direction Direction) Research {
	r := Research{
		Audience: "20~40대 실무자/창업자 + 문제 인식이 있는 얼리어답터",
		Trend: []string{
			fmt.Sprintf("%s 관련 검색량/커뮤니티 언급은 '가성비'와 '즉시성' 키워드로 모이는 경향", topic),
			"초기 진입자는 차별화 포인트보다 메시지 명확성이 성과를 좌우",
			"콘텐츠형 마케팅(짧은 카드·릴스)에서 전환이 자주 발생",
		},
	}
	if direction == DirectionTooNew {
		r.PainPoints = []string{
			"고객이 문제를 명확히 인식하지 못해 교육형 메시지가 필수",
			"비교 대상이 없어 가격 저항이 크게 나타날 수 있음",
			"신뢰 확보를 위한 사례·리뷰·데모 자산이 중요",
		}
		r.Opportunities = []string{
			"선점 브랜드로 카테고리 표준을 정의할 수 있음",
			"초기 타깃을 세분화하면 높은 충성도 확보 가능",
			"파트너십/커뮤니티 기반 확산이 빠르게 일어날 수 있음",
		}
		return r
	}
	r.PainPoints = []string{
		"시장이 포화되어 고객에게 새로움이 부족",
		"가격 경쟁으로 마진이 얇아지기 쉬움",
		"브랜드 전환 장벽이 낮아 재구매 관리가 핵심",
	}
	r.Opportunities = []string{
		"기존 프로세스 개선형 제안은 도입 저항이 낮음",
		"작은 불편 해결(속도, 신뢰, 개인화)만으로도 차별화 가능",
		"니치 세그먼트 공략 시 CAC를 안정적으로 낮출 수 있음",
	}
	return r
}

// PlanCards lays out the ten-card structure from the research.
func PlanCards(topic string, direction Direction, research Research) []Card {
	hook := "너무 지루한 시장"
	if direction == DirectionTooNew {
		hook = "너무 새로운 시장"
	}
	return []Card{
		{1, fmt.Sprintf("%s 카드뉴스", topic), fmt.Sprintf("%s를 기회로 바꾸는 10장 전략", hook),
			[]string{"문제 정의", "타깃 정의", "실행 프레임"},
			"끝까지 읽으면 바로 실행할 수 있습니다."},
		{2, "시장 진단", "왜 지금 이 시장을 봐야 할까?",
			firstN(research.Trend, 3),
			"트렌드 해석이 첫 번째 경쟁력입니다."},
		{3, "타깃 고객", "누구의 어떤 문제를 풀 것인가",
			[]string{research.Audience, "상황 중심 세그먼트 설계", "즉시 행동을 부르는 문장 정의"},
			"대상을 좁힐수록 메시지가 강해집니다."},
		{4, "핵심 페인포인트", "고객이 실제로 불편한 지점",
			firstN(research.PainPoints, 3),
			"페인포인트를 복사해 광고 카피로 활용하세요."},
		{5, "기회 포인트", "작지만 확실한 우위 만들기",
			firstN(research.Opportunities, 3),
			"작은 차이가 결국 선택의 이유가 됩니다."},
		{6, "포지셔닝", "한 줄 가치제안 만들기",
			[]string{fmt.Sprintf("%s = 빠르고 이해 쉬운 솔루션", topic), "기존 대안 대비 Before/After 제시", "가격이 아닌 결과 중심 메시지"},
			"포지셔닝은 한 문장으로 끝나야 합니다."},
		{7, "콘텐츠 전략", "어떤 형식으로 설득할까",
			[]string{"카드뉴스: 문제→해결 구조", "짧은 영상: 사용 장면 시각화", "후기/사례: 신뢰 자산 축적"},
			"설명보다 증명이 더 빠르게 전환을 만듭니다."},
		{8, "수익 모델", "작게 시작해 확장하는 방법",
			[]string{"입문형 상품으로 진입", "상위 플랜/옵션으로 업셀", "반복 구매 루프 설계"},
			"초기엔 복잡함보다 단순한 요금제가 유리합니다."},
		{9, "실행 로드맵", "30일 안에 검증하기",
			[]string{"1주차: 메시지/랜딩 제작", "2주차: 콘텐츠 10개 배포", "3~4주차: 광고/제휴로 실험"},
			"완벽함보다 빠른 검증이 중요합니다."},
		{10, "CTA", "다음 액션",
			[]string{"이 카드뉴스 템플릿 복사", "우리 브랜드 사례로 치환", "오늘 첫 게시물 업로드"},
			"지금 시작하면 다음 달 데이터가 쌓입니다."},
	}
}

func firstN(lines []string, n int) []string {
	if len(lines) > n {
		lines = lines[:n]
	}
	return append([]string(nil), lines...)
}

// Bundle is a generated cardnews package.
type Bundle struct {
	Topic    string   `json:"topic"`
	FileName string   `json:"file_name"`
	Research Research `json:"market_research"`
	Cards    []Card   `json:"cards"`
	HTML     string   `json:"-"`
	Zip      []byte   `json:"-"`
}

type bundlePayload struct {
	Topic       string   `json:"topic"`
	GeneratedAt string   `json:"generated_at"`
	Research    Research `json:"market_research"`
	Cards       []Card   `json:"cards"`
}

// Build runs the full pipeline and returns the zipped deliverable named
// <slug>_cardnews_<date>.zip.
func Build(topic string, direction Direction, styleName string, clock refs.Clock) (Bundle, error) {
	if strings.TrimSpace(topic) == "" {
		return Bundle{}, fmt.Errorf("topic is required")
	}
	if direction != DirectionBoring && direction != DirectionTooNew {
		return Bundle{}, fmt.Errorf("unknown direction %q", direction)
	}

	research := MarketResearch(topic, direction)
	cards := PlanCards(topic, direction, research)
	html, err := RenderHTML(cards, styleName)
	if err != nil {
		return Bundle{}, err
	}

	slug := TopicSlug(topic)
	day := clock.Now().Format("2006-01-02")
	payload, err := json.MarshalIndent(bundlePayload{
		Topic:       topic,
		GeneratedAt: day,
		Research:    research,
		Cards:       cards,
	}, "", "  ")
	if err != nil {
		return Bundle{}, fmt.Errorf("marshal cardnews payload: %w", err)
	}

	dir := fmt.Sprintf("%s_%s", slug, day)
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := []struct {
		name string
		data []byte
	}{
		{dir + "/market_and_cards.json", payload},
		{dir + "/cardnews_preview.html", []byte(html)},
		{dir + "/cardnews_summary.md", []byte(renderSummary(topic, research, cards))},
	}
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			return Bundle{}, fmt.Errorf("create zip entry %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return Bundle{}, fmt.Errorf("write zip entry %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return Bundle{}, fmt.Errorf("finalize cardnews zip: %w", err)
	}

	return Bundle{
		Topic:    topic,
		FileName: fmt.Sprintf("%s_cardnews_%s.zip", slug, day),
		Research: research,
		Cards:    cards,
		HTML:     html,
		Zip:      buf.Bytes(),
	}, nil
}

func renderSummary(topic string, research Research, cards []Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s 카드뉴스 패키지\n\n", topic)
	b.WriteString("## 1) 시장 리서치\n")
	fmt.Fprintf(&b, "- 타깃: %s\n", research.Audience)
	sections := []struct {
		key   string
		lines []string
	}{
		{"trend", research.Trend},
		{"pain_points", research.PainPoints},
		{"opportunities", research.Opportunities},
	}
	for _, s := range sections {
		fmt.Fprintf(&b, "- %s:\n", s.key)
		for _, line := range s.lines {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
	}
	b.WriteString("\n## 2) 10장 카드 구성\n")
	for _, c := range cards {
		fmt.Fprintf(&b, "- %d. %s | %s\n", c.Index, c.Title, c.Subtitle)
		for _, bullet := range c.Bullets {
			fmt.Fprintf(&b, "  - %s\n", bullet)
		}
	}
	return b.String()
}
