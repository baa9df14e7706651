// Package attach classifies announcement attachments and decides which
// ones are worth downloading and analyzing. Most portal attachments are
// boilerplate forms and templates; only substantive documents are
// stored locally.
package attach

import (
	"path"
	"strings"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// DefaultSizeCeiling is the largest attachment we will store locally.
const DefaultSizeCeiling = 20 << 20 // 20 MiB

// parseableTypes are document types the analysis collaborator accepts.
var parseableTypes = map[catalog.AttachmentType]bool{
	catalog.AttachmentHWP:  true,
	catalog.AttachmentHWPX: true,
	catalog.AttachmentPDF:  true,
	catalog.AttachmentDoc:  true,
}

// substantiveKeywords mark files likely to contain eligibility and
// application content.
var substantiveKeywords = []string{
	"공고", "공고문", "모집", "안내", "계획", "지침", "사업개요",
	"announcement", "notice", "guideline",
}

// excludedKeywords mark boilerplate forms/templates that are kept as
// remote-URL references only.
var excludedKeywords = []string{
	"서식", "양식", "신청서", "동의서", "위임장", "확인서", "증빙",
	"템플릿", "template", "form", "서약서",
}

var typeByExtension = map[string]catalog.AttachmentType{
	".hwp":  catalog.AttachmentHWP,
	".hwpx": catalog.AttachmentHWPX,
	".pdf":  catalog.AttachmentPDF,
	".doc":  catalog.AttachmentDoc,
	".docx": catalog.AttachmentDoc,
	".xls":  catalog.AttachmentSheet,
	".xlsx": catalog.AttachmentSheet,
	".zip":  catalog.AttachmentZip,
	".jpg":  catalog.AttachmentImage,
	".jpeg": catalog.AttachmentImage,
	".png":  catalog.AttachmentImage,
	".gif":  catalog.AttachmentImage,
}

var typeByMime = map[string]catalog.AttachmentType{
	"application/x-hwp":     catalog.AttachmentHWP,
	"application/haansofthwp": catalog.AttachmentHWP,
	"application/pdf":       catalog.AttachmentPDF,
	"application/msword":    catalog.AttachmentDoc,
	"application/zip":       catalog.AttachmentZip,
	"image/jpeg":            catalog.AttachmentImage,
	"image/png":             catalog.AttachmentImage,
}

// Classify derives the attachment type from filename extension first,
// MIME type second.
func Classify(fileName, mimeType string) catalog.AttachmentType {
	ext := strings.ToLower(path.Ext(fileName))
	if t, ok := typeByExtension[ext]; ok {
		return t
	}
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if t, ok := typeByMime[mime]; ok {
		return t
	}
	return catalog.AttachmentOther
}

// Decision is the selective-storage verdict for one attachment.
type Decision struct {
	Type        catalog.AttachmentType
	ShouldParse bool
	Reason      string
}

// Decide applies the selective-storage policy: parseable document type,
// substantive (not boilerplate) filename, and below the size ceiling.
func Decide(fileName, mimeType string, sizeBytes, sizeCeiling int64) Decision {
	if sizeCeiling <= 0 {
		sizeCeiling = DefaultSizeCeiling
	}
	t := Classify(fileName, mimeType)
	d := Decision{Type: t}

	if !parseableTypes[t] {
		d.Reason = "type not parseable"
		return d
	}
	lower := strings.ToLower(fileName)
	for _, kw := range excludedKeywords {
		if strings.Contains(lower, kw) {
			d.Reason = "boilerplate keyword: " + kw
			return d
		}
	}
	if sizeBytes > sizeCeiling {
		d.Reason = "exceeds size ceiling"
		return d
	}
	for _, kw := range substantiveKeywords {
		if strings.Contains(lower, kw) {
			d.ShouldParse = true
			d.Reason = "substantive keyword: " + kw
			return d
		}
	}
	d.Reason = "no substantive keyword"
	return d
}
