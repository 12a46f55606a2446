package vision

import (
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"
)

var (
	// ErrNoExtractableText means the model answer was malformed and carried
	// no recoverable OCR text. Terminal for the record.
	ErrNoExtractableText = errors.New("invalid model response and no OCR text could be extracted")

	// ErrServiceFailure means the extraction service itself failed (network,
	// quota, auth). Terminal for the record.
	ErrServiceFailure = errors.New("extraction service request failed")
)

// reOCRText matches the ocr_text field inside otherwise broken JSON,
// honoring escaped quotes.
var reOCRText = regexp.MustCompile(`"ocr_text"\s*:\s*"((?:\\.|[^"\\])*)"`)

// ExtractJSONBlock strips markdown fences and slices out the outermost JSON
// object. Models wrap answers in fences often enough that this runs on every
// response.
func ExtractJSONBlock(text string) (string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// SalvageOCRText pulls the ocr_text value out of a malformed response so the
// regex fallback still has something to work with.
func SalvageOCRText(raw string) string {
	m := reOCRText.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	s := m[1]
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

// DecodeBill turns a raw model response into a RawBill. Three outcomes:
// a clean decode (salvaged false), a malformed response whose OCR text was
// recovered so fallback extraction can run (salvaged true, every structured
// field zero), or ErrNoExtractableText when nothing was recoverable.
func DecodeBill(raw []byte, logger *slog.Logger) (*RawBill, bool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	block, ok := ExtractJSONBlock(string(raw))
	if !ok {
		return salvage(raw, logger)
	}

	sanitized, _, err := NormalizeAndSanitizeJSON([]byte(block), logger)
	if err != nil {
		logger.Warn("vision.decode.sanitize_failed", "error", err)
		return salvage(raw, logger)
	}

	if err := ValidateJSONAgainstSchema(BuildBillJSONSchema(), sanitized); err != nil {
		logger.Warn("vision.decode.schema_failed", "error", err)
		return salvage(raw, logger)
	}

	var bill RawBill
	if err := json.Unmarshal(sanitized, &bill); err != nil {
		logger.Warn("vision.decode.unmarshal_failed", "error", err)
		return salvage(raw, logger)
	}
	return &bill, false, nil
}

func salvage(raw []byte, logger *slog.Logger) (*RawBill, bool, error) {
	text := SalvageOCRText(string(raw))
	if text == "" {
		logger.Error("vision.decode.unrecoverable", "response_len", len(raw))
		return nil, false, ErrNoExtractableText
	}
	logger.Warn("vision.decode.salvaged_ocr_text", "text_len", len(text))
	return &RawBill{OCRText: text}, true, nil
}
