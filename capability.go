package regdoc

import "context"

// Embedder abstracts text embedding. Implementations call external
// services and must honor ctx deadlines.
type Embedder interface {
	// Embed returns embedding vectors for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the embedder name.
	Name() string
}

// StructureGenerator rewrites raw extracted text into normalized
// Markdown, inferring document structure. Typically backed by an LLM;
// the pipeline treats it as optional and falls back to deterministic
// parsing when it fails or times out.
type StructureGenerator interface {
	GenerateStructure(ctx context.Context, text string) (string, error)
}

// StructureFunc adapts a function to the StructureGenerator interface.
type StructureFunc func(ctx context.Context, text string) (string, error)

func (f StructureFunc) GenerateStructure(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// PageImage identifies one page of a source document handed to a text
// recognizer. Data holds the raw document bytes; the recognizer renders
// the page itself.
type PageImage struct {
	DocID string
	Page  int
	Data  []byte
}

// TextRecognizer recognizes text on a document page (OCR). Language
// selection and rendering are the implementation's concern.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, page PageImage) (string, error)
}

// RecognizeFunc adapts a function to the TextRecognizer interface.
type RecognizeFunc func(ctx context.Context, page PageImage) (string, error)

func (f RecognizeFunc) RecognizeText(ctx context.Context, page PageImage) (string, error) {
	return f(ctx, page)
}
