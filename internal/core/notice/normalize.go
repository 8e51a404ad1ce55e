package notice

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	pstrings "tedingest/internal/platform/strings"
)

// Source is the default source system label
const Source = "TED"

// DetailURLBase prefixes a native id to form the public notice page
const DetailURLBase = "https://ted.europa.eu/en/notice/"

// DocType is the notice family, taken from the document element
type DocType string

// Known document elements
const (
	DocContract DocType = "ContractNotice"
	DocAward    DocType = "ContractAwardNotice"
	DocPrior    DocType = "PriorInformationNotice"
	DocOther    DocType = ""
)

// Notice is the flattened staging record for one document
type Notice struct {
	TBID             *string    `json:"tb_id" validate:"required,min=1"`
	NativeID         *string    `json:"native_id" validate:"required,min=1"`
	Source           string     `json:"source"`
	Title            *string    `json:"title"`
	ShortDescription *string    `json:"short_description"`
	BuyerName        *string    `json:"buyer_name"`
	BuyerCountry     *string    `json:"buyer_country"`
	BuyerCity        *string    `json:"buyer_city"`
	BuyerStreet      *string    `json:"buyer_street"`
	Language         *string    `json:"language"`
	CPVMain          *string    `json:"cpv_main"`
	Deadline         *time.Time `json:"deadline"`
	RawDeadlineDate  *string    `json:"raw_deadline_date"`
	RawDeadlineTime  *string    `json:"raw_deadline_time"`
	DetailURL        *string    `json:"detail_url"`
	IsAward          bool       `json:"is_award"`
	CompetitionFlag  bool       `json:"competition_flag"`
	PublishedAt      *time.Time `json:"published_at" validate:"required"`
	RunID            string     `json:"run_id"`
	SourceRowHash    string     `json:"source_row_hash"`

	DocType DocType `json:"-"`
}

// Hash is the hex SHA-256 of a raw document
func Hash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

var (
	pathsPublished = []Path{
		P("UBLExtensions/UBLExtension/ExtensionContent/EformsExtension/Publication/PublicationDate"),
		P("UBLExtensions/UBLExtension/0/ExtensionContent/EformsExtension/Publication/PublicationDate"),
		P("IssueDate"),
		P("UBLExtensions/UBLExtension/ExtensionContent/Publication/PublicationDate"),
	}
	pathsPublicationID = []Path{
		P("UBLExtensions/UBLExtension/ExtensionContent/EformsExtension/Publication/NoticePublicationID"),
		P("UBLExtensions/UBLExtension/0/ExtensionContent/EformsExtension/Publication/NoticePublicationID"),
		P("UBLExtensions/UBLExtension/ExtensionContent/Publication/NoticePublicationID"),
	}
	pathOrganizations = P("UBLExtensions/UBLExtension/ExtensionContent/EformsExtension/Organizations/Organization")

	pathOrgName   = P("Company/PartyName/Name")
	pathOrgCity   = P("Company/PostalAddress/CityName")
	pathOrgStreet = P("Company/PostalAddress/StreetName")

	pathPartyName   = P("ContractingParty/Party/PartyName/Name")
	pathPartyCity   = P("ContractingParty/Party/PostalAddress/CityName")
	pathPartyStreet = P("ContractingParty/Party/PostalAddress/StreetName")

	pathLanguage = P("NoticeLanguageCode")
	pathTitle    = P("ProcurementProject/Name")
	pathDesc     = P("ProcurementProject/Description")
	pathCPV      = P("ProcurementProject/MainCommodityClassification/ItemClassificationCode")
	pathsCountry = []Path{
		P("ProcurementProject/RealizedLocation/Address/Country/IdentificationCode"),
		P("ContractingParty/Party/PostalAddress/Country/IdentificationCode"),
	}
	pathSiteCity = P("ProcurementProject/RealizedLocation/Address/CityName")

	pathDeadlineDate = P("TenderingProcess/TenderSubmissionDeadlinePeriod/EndDate")
	pathDeadlineTime = P("TenderingProcess/TenderSubmissionDeadlinePeriod/EndTime")
	pathFirstLot     = P("ProcurementProjectLot/0")
)

// Normalizer maps parsed documents to Notice records
type Normalizer struct {
	Source     string
	DetailBase string
	// organizations whose name contains any of these are never the buyer
	SkipOrgs []string
}

// NewNormalizer returns a Normalizer with TED defaults
func NewNormalizer() Normalizer {
	return Normalizer{Source: Source, DetailBase: DetailURLBase, SkipOrgs: []string{"Publications Office"}}
}

// Normalize parses raw and maps it to a Notice. fallback (a calendar day)
// fills PublishedAt when the document has no parseable publication date.
// hash is stored as SourceRowHash; pass "" to compute it from raw.
// Only undecodable XML is an error; unresolved fields stay nil.
func (nz Normalizer) Normalize(raw []byte, fallback time.Time, hash string) (Notice, error) {
	doc, err := Parse(raw)
	if err != nil {
		return Notice{}, err
	}
	if hash == "" {
		hash = Hash(raw)
	}

	out := Notice{Source: nz.Source, SourceRowHash: hash}

	root := doc
	for _, dt := range []DocType{DocContract, DocAward, DocPrior} {
		if r := doc.Field(string(dt)); r != nil {
			root, out.DocType = r, dt
			break
		}
	}
	out.IsAward = doc.Field(string(DocAward)) != nil
	out.CompetitionFlag = !out.IsAward

	if s, ok := First(root, pathsPublished...); ok {
		if ts, ok := ParsePublished(s); ok {
			out.PublishedAt = &ts
		}
	}
	if out.PublishedAt == nil && !fallback.IsZero() {
		y, m, d := fallback.Date()
		ts := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		out.PublishedAt = &ts
	}

	out.Language = str(First(root, pathLanguage))
	out.Title = text(First(root, pathTitle))
	out.ShortDescription = text(First(root, pathDesc))
	out.CPVMain = str(First(root, pathCPV))

	nz.buyer(root, &out)

	out.BuyerCountry = str(First(root, pathsCountry...))
	if out.BuyerCountry == nil {
		out.BuyerCountry = pstrings.Ptr(CountryFromXML(raw))
	}

	date, dok := First(root, pathDeadlineDate)
	tod, _ := First(root, pathDeadlineTime)
	if !dok {
		lot := Dig(root, pathFirstLot)
		date, _ = First(lot, pathDeadlineDate)
		tod, _ = First(lot, pathDeadlineTime)
	}
	out.RawDeadlineDate, out.RawDeadlineTime = pstrings.Ptr(date), pstrings.Ptr(tod)
	if ts, ok := CombineDeadline(date, tod); ok {
		out.Deadline = &ts
	}

	native := ""
	if pub, ok := First(root, pathsPublicationID...); ok {
		native = NativeIDFromPublicationID(pub)
	}
	if native == "" {
		native = NativeIDFromXML(raw)
	}
	if native != "" {
		out.NativeID = &native
		tb := nz.Source + "|" + native
		url := nz.DetailBase + native
		out.TBID, out.DetailURL = &tb, &url
	}
	return out, nil
}

// buyer takes the first organization not excluded by SkipOrgs, then falls
// back to the contracting party and the realized location
func (nz Normalizer) buyer(root *Node, out *Notice) {
	for _, org := range Dig(root, pathOrganizations).List() {
		name, ok := First(org, pathOrgName)
		if !ok || nz.skipOrg(name) {
			continue
		}
		out.BuyerName = text(name, true)
		out.BuyerCity = text(First(org, pathOrgCity))
		out.BuyerStreet = text(First(org, pathOrgStreet))
		break
	}
	if out.BuyerName == nil {
		if name, ok := First(root, pathPartyName); ok && !nz.skipOrg(name) {
			out.BuyerName = text(name, true)
			if out.BuyerStreet == nil {
				out.BuyerStreet = text(First(root, pathPartyStreet))
			}
			if out.BuyerCity == nil {
				out.BuyerCity = text(First(root, pathPartyCity))
			}
		}
	}
	if out.BuyerCity == nil {
		out.BuyerCity = text(First(root, pathSiteCity))
	}
}

func (nz Normalizer) skipOrg(name string) bool {
	for _, s := range nz.SkipOrgs {
		if s != "" && strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func str(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return pstrings.Ptr(s)
}

func text(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return pstrings.Ptr(cleanText(s))
}
