package cardnews

import (
	"fmt"
	"html/template"
	"strings"
)

// Style is one color preset for the HTML preview.
type Style struct {
	BG     string
	CardBG string
	Title  string
	Body   string
	Accent string
}

// DefaultStyle names the preset used when an unknown style is requested.
const DefaultStyle = "모던 미니멀"

// StylePresets holds the three shipped color schemes.
var StylePresets = map[string]Style{
	"모던 미니멀": {
		BG: "#F6F7FB", CardBG: "#FFFFFF", Title: "#1B1F3B", Body: "#2F365F", Accent: "#5B7CFA",
	},
	"강한 임팩트": {
		BG: "#0E0E12", CardBG: "#1A1B24", Title: "#FFFFFF", Body: "#D7DBF4", Accent: "#FF6B6B",
	},
	"비즈니스 클래식": {
		BG: "#F2F5F7", CardBG: "#FFFFFF", Title: "#1F2937", Body: "#374151", Accent: "#0EA5E9",
	},
}

var previewTmpl = template.Must(template.New("preview").Parse(strings.TrimSpace(`
<!doctype html>
<html lang='ko'>
<head>
<meta charset='utf-8'/>
<meta name='viewport' content='width=device-width, initial-scale=1'/>
<title>Cardnews Preview</title>
<style>
body {font-family: 'Pretendard', 'Noto Sans KR', sans-serif; background:{{.Style.BG}}; margin:0; padding:40px; color:{{.Style.Body}};}
.grid {display:grid; grid-template-columns: repeat(auto-fit, minmax(260px, 1fr)); gap:18px; max-width:1200px; margin:0 auto;}
.card {background:{{.Style.CardBG}}; border-radius:18px; padding:20px; box-shadow:0 8px 22px rgba(0,0,0,.08); min-height:320px;}
.index {color:{{.Style.Accent}}; font-weight:700; margin-bottom:6px;}
h2 {margin:0; color:{{.Style.Title}}; font-size:24px;}
h3 {margin:8px 0 14px 0; font-size:16px; color:{{.Style.Body}};}
ul {padding-left:18px; line-height:1.5;}
.insight {margin-top:16px; border-left:4px solid {{.Style.Accent}}; padding-left:10px; font-weight:600;}
</style>
</head>
<body>
<div class='grid'>
{{range .Cards}}<section class='card'>
  <div class='index'>#{{printf "%02d" .Index}}</div>
  <h2>{{.Title}}</h2>
  <h3>{{.Subtitle}}</h3>
  <ul>{{range .Bullets}}<li>{{.}}</li>{{end}}</ul>
  <p class='insight'>{{.Insight}}</p>
</section>
{{end}}</div>
</body>
</html>
`)))

// RenderHTML renders the static preview page for the deck.
func RenderHTML(cards []Card, styleName string) (string, error) {
	style, ok := StylePresets[styleName]
	if !ok {
		style = StylePresets[DefaultStyle]
	}
	var b strings.Builder
	err := previewTmpl.Execute(&b, struct {
		Style Style
		Cards []Card
	}{Style: style, Cards: cards})
	if err != nil {
		return "", fmt.Errorf("render cardnews preview: %w", err)
	}
	return b.String(), nil
}
