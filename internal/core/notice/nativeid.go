package notice

import (
	"regexp"
	"strings"
)

var (
	rePublicationID = regexp.MustCompile(`^(\d{8})-(\d{4})$`)
	reXMLPubID      = regexp.MustCompile(`(?i)<[^>]*NoticePublicationID[^>]*>([^<]+)</[^>]*NoticePublicationID>`)
	reXMLLegacyID   = regexp.MustCompile(`(?is)<NOTICE_NUMBER_OJS[^>]*>(\d+)</NOTICE_NUMBER_OJS>.*?<NOTICE_YEAR[^>]*>(\d{4})</NOTICE_YEAR>`)
	reXMLCountry    = regexp.MustCompile(`(?i)<[^>]*IdentificationCode[^>]*listName="country"[^>]*>([A-Z]{3})</[^>]*IdentificationCode>`)
)

func stripZeros(num string) string {
	if s := strings.TrimLeft(num, "0"); s != "" {
		return s
	}
	return "0"
}

// NativeIDFromPublicationID canonicalizes "00608908-2025" to "608908-2025".
// Values of any other shape are returned trimmed; blank yields "".
func NativeIDFromPublicationID(pubID string) string {
	s := strings.TrimSpace(pubID)
	if m := rePublicationID.FindStringSubmatch(s); m != nil {
		return stripZeros(m[1]) + "-" + m[2]
	}
	return s
}

// NativeIDFromXML scans raw document text for a publication id element,
// then for the legacy NOTICE_NUMBER_OJS / NOTICE_YEAR pair
func NativeIDFromXML(raw []byte) string {
	if m := reXMLPubID.FindSubmatch(raw); m != nil {
		if id := NativeIDFromPublicationID(string(m[1])); id != "" {
			return id
		}
	}
	if m := reXMLLegacyID.FindSubmatch(raw); m != nil {
		return stripZeros(string(m[1])) + "-" + string(m[2])
	}
	return ""
}

// CountryFromXML finds a three-letter code tagged listName="country"
func CountryFromXML(raw []byte) string {
	if m := reXMLCountry.FindSubmatch(raw); m != nil {
		return string(m[1])
	}
	return ""
}
