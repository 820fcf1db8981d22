// Package storybook generates a children's storybook bundle from an
// uploaded face photo.
package storybook

import "fmt"

// Kind selects the page template set.
type Kind string

// Supported template kinds.
const (
	KindStarlight Kind = "starlight"
	KindOcean     Kind = "ocean"
	KindDino      Kind = "dino"
)

// KindLabels maps template kinds to their display names.
var KindLabels = map[Kind]string{
	KindStarlight: "별빛 모험",
	KindOcean:     "바다 친구",
	KindDino:      "공룡 탐험",
}

// BuildPages returns the six-page story text for the given template kind.
// Unknown kinds fall back to the starlight template.
func BuildPages(kind Kind, childName, theme, tone string) []string {
	switch kind {
	case KindOcean:
		return []string{
			fmt.Sprintf("%s의 얼굴을 닮은 주인공이 푸른 %s 바다로 여행을 떠나요.", childName, theme),
			"반짝이는 조개를 열자 주인공의 미소를 닮은 빛이 바닷속을 비춰요.",
			fmt.Sprintf("돌고래 친구들과 함께 %s 분위기로 잃어버린 지도를 찾아요.", tone),
			"소용돌이 구간에서도 주인공은 침착하게 친구들을 이끌어요.",
			fmt.Sprintf("마침내 숨겨진 산호 정원에서 %s의 비밀 보물을 발견해요.", theme),
			fmt.Sprintf("집으로 돌아온 %s는 용감한 바다 탐험가로 칭찬받아요.", childName),
		}
	case KindDino:
		return []string{
			fmt.Sprintf("%s를 닮은 주인공이 %s 공룡 계곡의 문을 열어요.", childName, theme),
			"발자국 단서를 따라가며 주인공은 자신감 있는 표정으로 앞장서요.",
			fmt.Sprintf("초식 공룡 친구들과 %s 분위기의 미션을 하나씩 해결해요.", tone),
			"거대한 바위가 막아섰지만 주인공의 기지로 길이 열려요.",
			fmt.Sprintf("정상에 올라 %s 계곡의 무지개 화석을 찾아 모두가 환호해요.", theme),
			fmt.Sprintf("마지막 장면에서 %s의 웃음이 공룡 친구들의 축제가 돼요.", childName),
		}
	default:
		return []string{
			fmt.Sprintf("%s의 얼굴을 꼭 닮은 주인공이 %s 마을로 들어가며 이야기가 시작돼요.", childName, theme),
			"반짝이는 거울에서 자신과 닮은 미소를 보고 주인공은 용기를 얻어요.",
			fmt.Sprintf("친구들을 만나며 %s 분위기의 모험 단서를 하나씩 찾아요.", tone),
			"어려운 순간에도 주인공은 눈빛과 표정으로 진심을 전해 모두를 안심시켜요.",
			fmt.Sprintf("마지막 관문을 통과한 뒤, %s 마을에 따뜻한 빛이 다시 퍼져요.", theme),
			fmt.Sprintf("모험이 끝나고 %s의 환한 웃음이 마을의 새로운 전설이 돼요.", childName),
		}
	}
}
