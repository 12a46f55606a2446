package vision

// BuildExtractionPrompt composes the single-call prompt: structured fields
// plus the raw OCR text, which downstream fallbacks depend on when the
// structured answer is weak or malformed.
func BuildExtractionPrompt() string {
	return `Extract receipt/invoice data AND return the raw OCR text.
Return ONLY valid JSON.
Do NOT include explanations.
If a field is missing or uncertain, return an empty string or null.

Schema:
{
  "ocr_text": "raw text from receipt (REQUIRED for fallback)",
  "invoice_number": string,
  "vendor_name": string,
  "purchase_date": "YYYY-MM-DD",
  "purchase_time": "HH:MM",
  "currency": string,
  "items": [
    {"s_no": int, "item_name": string, "quantity": number,
     "unit_price": number, "item_total": number}
  ],
  "subtotal": number,
  "tax_amount": number,
  "total_amount": number,
  "payment_method": string
}`
}
