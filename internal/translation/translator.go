package translation

import "context"

// Translator translates a batch of texts. The result has one entry per input,
// in input order; an empty entry means that text could not be translated.
type Translator interface {
	TranslateBatch(ctx context.Context, texts []string) ([]string, error)
}

// Func adapts a plain function to Translator.
type Func func(ctx context.Context, texts []string) ([]string, error)

func (f Func) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	return f(ctx, texts)
}
