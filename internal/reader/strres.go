package reader

import (
	"html"
	"regexp"
)

// StrRes2 holds the fields carried by the legacy ConStrRes2 column, a
// fragment of short tag-delimited values such as
// "<a>alias</a><HeadImgUrl>...</HeadImgUrl><HeadImgHDUrl>...</HeadImgHDUrl>".
type StrRes2 struct {
	Alias      string
	Portrait   string
	PortraitHD string
}

var (
	strResAlias      = regexp.MustCompile(`(?s)<a>(.*?)</a>`)
	strResPortrait   = regexp.MustCompile(`(?s)<HeadImgUrl>(.*?)</HeadImgUrl>`)
	strResPortraitHD = regexp.MustCompile(`(?s)<HeadImgHDUrl>(.*?)</HeadImgHDUrl>`)
)

// ParseStrRes2 extracts what it recognizes from s. Empty or unrecognized
// input yields the zero value.
func ParseStrRes2(s string) StrRes2 {
	if s == "" {
		return StrRes2{}
	}
	return StrRes2{
		Alias:      firstGroup(strResAlias, s),
		Portrait:   firstGroup(strResPortrait, s),
		PortraitHD: firstGroup(strResPortraitHD, s),
	}
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return html.UnescapeString(m[1])
}
