package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nishantd01/smart-backoffice/models"
)

const maxPayloadBytes = 1 << 20

// PayloadKind tags how an inbound request carried its fields.
type PayloadKind int

const (
	// PayloadJSON is a raw JSON object body.
	PayloadJSON PayloadKind = iota
	// PayloadDataField is a form body whose "data" field holds a JSON object.
	PayloadDataField
	// PayloadParams is a form body or query string of individual fields.
	PayloadParams
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadJSON:
		return "json"
	case PayloadDataField:
		return "data field"
	default:
		return "form"
	}
}

// Payload is the inbound request resolved into exactly one encoding.
type Payload struct {
	Kind   PayloadKind
	Body   []byte
	Data   string
	Params url.Values
}

// PayloadFromRequest picks the encoding of r. A non-form body wins over the
// "data" field, which wins over individual parameters.
func PayloadFromRequest(r *http.Request) (Payload, error) {
	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			return Payload{}, &ParseError{Source: "request", Err: err}
		}
		body = b
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	isForm := mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"

	if !isForm && len(bytes.TrimSpace(body)) > 0 {
		return Payload{Kind: PayloadJSON, Body: body}, nil
	}

	params := url.Values{}
	for key, vals := range r.URL.Query() {
		params[key] = vals
	}
	if isForm {
		r.Body = io.NopCloser(bytes.NewReader(body))
		var err error
		if mediaType == "multipart/form-data" {
			err = r.ParseMultipartForm(maxPayloadBytes)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return Payload{}, &ParseError{Source: "form", Err: err}
		}
		for key, vals := range r.PostForm {
			params[key] = vals
		}
		if r.MultipartForm != nil {
			for key, vals := range r.MultipartForm.Value {
				params[key] = vals
			}
		}
	}

	if data := params.Get("data"); data != "" {
		return Payload{Kind: PayloadDataField, Data: data}, nil
	}
	return Payload{Kind: PayloadParams, Params: params}, nil
}

// Normalizer turns a Payload into a canonical LeadRecord.
type Normalizer struct {
	Now func() time.Time
}

// NewNormalizer returns a Normalizer stamping missing timestamps with time.Now.
func NewNormalizer() *Normalizer {
	return &Normalizer{Now: time.Now}
}

// Normalize decodes p and fills every absent field with its default.
func (n *Normalizer) Normalize(p Payload) (models.LeadRecord, error) {
	var fields map[string]any
	switch p.Kind {
	case PayloadJSON:
		m, err := decodeObject(p.Body)
		if err != nil {
			return models.LeadRecord{}, &ParseError{Source: p.Kind.String(), Err: err}
		}
		fields = m
	case PayloadDataField:
		m, err := decodeObject([]byte(p.Data))
		if err != nil {
			return models.LeadRecord{}, &ParseError{Source: p.Kind.String(), Err: err}
		}
		fields = m
	default:
		fields = make(map[string]any, len(p.Params))
		for key := range p.Params {
			fields[key] = p.Params.Get(key)
		}
	}
	return n.record(fields), nil
}

func (n *Normalizer) record(fields map[string]any) models.LeadRecord {
	rec := models.LeadRecord{
		BusinessName:   readString(fields, "businessName"),
		BusinessType:   readString(fields, "businessType"),
		ContactName:    readString(fields, "contactName"),
		Email:          readString(fields, "email"),
		Phone:          readString(fields, "phone"),
		LineID:         readString(fields, "lineId"),
		Timestamp:      readString(fields, "timestamp"),
		Action:         readString(fields, "action"),
		SessionID:      readString(fields, "sessionId"),
		Currency:       readString(fields, "currency"),
		Package:        readString(fields, "package"),
		PackageName:    readString(fields, "packageName"),
		PackagePrice:   readAmount(fields, "packagePrice"),
		Amount:         readAmount(fields, "amount"),
		VerifiedAmount: readAmount(fields, "verifiedAmount"),
		PaymentStatus:  readString(fields, "paymentStatus"),
		Requirements:   readString(fields, "requirements"),
		AdditionalInfo: readString(fields, "additionalInfo"),
		SuccessURL:     readString(fields, "successUrl"),
		CancelURL:      readString(fields, "cancelUrl"),
	}
	if rec.Timestamp == "" {
		now := time.Now
		if n.Now != nil {
			now = n.Now
		}
		rec.Timestamp = now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	return rec
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
	return m, nil
}

func readString(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func readAmount(fields map[string]any, key string) models.Amount {
	var raw string
	switch v := fields[key].(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = v
	default:
		return models.Amount{}
	}
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return models.Amount{}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.Amount{}
	}
	return models.NewAmount(f)
}
