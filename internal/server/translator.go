package server

import (
	"context"

	"chatwave/internal/model"
)

// passthroughTranslator returns the text unchanged while keeping the
// translate contract intact. It stands in for a real provider so the rest
// of the stack can be exercised without external credentials.
type passthroughTranslator struct{}

func NewPassthroughTranslator() Translator {
	return passthroughTranslator{}
}

func (passthroughTranslator) Translate(_ context.Context, text, languageCode string) (*model.TranslateResult, error) {
	return &model.TranslateResult{
		TranslatedText: text,
		SourceLanguage: "auto",
		TargetLanguage: languageCode,
	}, nil
}
