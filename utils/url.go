package utils

import (
	"net/url"
	"regexp"
	"strings"
)

// https://daringfireball.net/2010/07/improved_regex_for_matching_urls
var urlRegex = regexp.MustCompile(`(?i)^\b((?:[a-z][\w-]+:(?:/{1,3}|[a-z0-9%])|www\d{0,3}[.]|[a-z0-9.\-]+[.][a-z]{2,4}/)(?:[^\s()<>]+|\(([^\s()<>]+|(\([^\s()<>]+\)))*\))+(?:\(([^\s()<>]+|(\([^\s()<>]+\)))*\)|[^\s` + "`" + `!()\[\]{};:'".,<>?«»“”‘’]))`)

var imageURLRegex = regexp.MustCompile(`(?i)^https?://\S+(\.jpg|\.jpeg|\.png|\.gif|\.webp)$`)

// ValidateURL reports whether s is a well-formed http(s) URL.
func ValidateURL(s string) bool {
	if !urlRegex.MatchString(s) {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsImageURL reports whether s is a bare link to an image file.
func IsImageURL(s string) bool {
	return imageURLRegex.MatchString(s)
}

// CleanURLArgument strips the angle brackets Discord users wrap links in to
// suppress embeds.
func CleanURLArgument(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<")
	s = strings.TrimSuffix(s, ">")
	return s
}
