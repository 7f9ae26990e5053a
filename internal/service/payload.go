package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"custodyapi/internal/digest"
	"custodyapi/internal/model"
)

var (
	resolutionPattern = regexp.MustCompile(`^[0-9]{1,5}x[0-9]{1,5}$`)
	digestPattern     = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// normalizePayload checks that raw has exactly the shape required by t and
// returns its canonical encoding, which is what gets stored and hashed.
func normalizePayload(t model.EvidenceType, raw json.RawMessage) (json.RawMessage, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown evidence type %q", ErrInvalidPayload, t)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}

	var err error
	switch t {
	case model.EvidenceScreenshot:
		var p model.ScreenshotPayload
		if err = decodeStrict(raw, &p); err == nil {
			err = validation.ValidateStruct(&p,
				validation.Field(&p.URL, validation.Required, is.URL),
				validation.Field(&p.Resolution, validation.Required, validation.Match(resolutionPattern)),
			)
		}
	case model.EvidenceText:
		var p model.TextPayload
		if err = decodeStrict(raw, &p); err == nil {
			err = validation.ValidateStruct(&p,
				validation.Field(&p.Excerpt, validation.Required),
				validation.Field(&p.Language, validation.Required, validation.Length(2, 35)),
			)
		}
	case model.EvidenceFile:
		var p model.FilePayload
		if err = decodeStrict(raw, &p); err == nil {
			err = validateFilePayload(&p)
		}
	case model.EvidenceMetadata:
		var p model.MetadataPayload
		if err = decodeStrict(raw, &p); err == nil {
			err = validation.Validate(p, validation.Required, validation.By(nonEmptyKeys))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	canonical, err := digest.CanonicalJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return canonical, nil
}

func validateFilePayload(p *model.FilePayload) error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Filename, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.Size, validation.Min(int64(0))),
		validation.Field(&p.MimeType, validation.Required),
		validation.Field(&p.Digest, validation.Required, validation.Match(digestPattern)),
	)
}

func nonEmptyKeys(value any) error {
	m, _ := value.(model.MetadataPayload)
	for k := range m {
		if strings.TrimSpace(k) == "" {
			return errors.New("keys must not be blank")
		}
	}
	return nil
}

// decodeStrict decodes exactly one JSON value into v, rejecting unknown fields.
func decodeStrict(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after payload")
	}
	return nil
}
