package notice

import (
	"sync"

	perr "tedingest/internal/platform/errors"

	"github.com/go-playground/validator/v10"
)

// SkipReason labels why a document did not become a persisted record
type SkipReason string

// Skip reasons reported in run summaries and metrics
const (
	SkipDecode         SkipReason = "decode"
	SkipMissingTBID    SkipReason = "missing_tb_id"
	SkipMissingNative  SkipReason = "missing_native_id"
	SkipMissingPublish SkipReason = "missing_published_at"
)

var (
	vOnce sync.Once
	vInst *validator.Validate
)

func validate() *validator.Validate {
	vOnce.Do(func() {
		vInst = validator.New(validator.WithRequiredStructEnabled())
	})
	return vInst
}

// Eligible reports whether n may be persisted: tb_id, native_id and
// published_at must all be present. The returned reasons list every
// missing field in that order.
func Eligible(n Notice) (bool, []SkipReason) {
	err := validate().Struct(n)
	if err == nil {
		return true, nil
	}
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return false, []SkipReason{SkipDecode}
	}
	var reasons []SkipReason
	for _, want := range []struct {
		field  string
		reason SkipReason
	}{
		{"TBID", SkipMissingTBID},
		{"NativeID", SkipMissingNative},
		{"PublishedAt", SkipMissingPublish},
	} {
		for _, fe := range ves {
			if fe.StructField() == want.field {
				reasons = append(reasons, want.reason)
				break
			}
		}
	}
	return false, reasons
}

// CheckEligible is Eligible as an error carrying the first missing field
func CheckEligible(n Notice) error {
	ok, reasons := Eligible(n)
	if ok {
		return nil
	}
	field := "record"
	if len(reasons) > 0 {
		field = string(reasons[0])
	}
	return perr.WithField(perr.Validationf("notice: not eligible for persistence"), field)
}
