package validation

import "strings"

// OtherProvinces is the city recorded when an address names no known city.
const OtherProvinces = "محافظات أخرى"

var cityKeywords = []struct {
	city     string
	keywords []string
}{
	{city: "بغداد", keywords: []string{"بغداد", "baghdad"}},
	{city: "أربيل", keywords: []string{"أربيل", "اربيل", "erbil"}},
	{city: "البصرة", keywords: []string{"البصرة", "البصره", "basra"}},
	{city: "الموصل", keywords: []string{"الموصل", "mosul"}},
	{city: "السليمانية", keywords: []string{"السليمانية", "sulaymaniyah"}},
	{city: "كربلاء", keywords: []string{"كربلاء", "karbala"}},
	{city: "النجف", keywords: []string{"النجف", "najaf"}},
}

// DetectCity guesses the city from free-text address keywords.
func DetectCity(address string) string {
	lower := strings.ToLower(address)
	for _, c := range cityKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.city
			}
		}
	}
	return OtherProvinces
}
