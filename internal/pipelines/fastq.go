package pipelines

import (
	"context"
)

// FastqHandler — pipeline, читающий fastq-файлы run напрямую.
type FastqHandler struct {
	name string
}

// NewFastqHandler создаёт обработчик для pipeline с именем name.
func NewFastqHandler(name string) *FastqHandler {
	return &FastqHandler{name: name}
}

// Name реализует Handler.
func (h *FastqHandler) Name() string {
	return h.name
}

// Prepare реализует Handler: вход — каталог fastq run.
func (h *FastqHandler) Prepare(_ context.Context, req *Request) (map[string]any, error) {
	return shapeParameters(req, map[string]any{
		ParamFastqInput: req.Run.FastqDirectory,
	})
}

// Finalize реализует Handler.
func (h *FastqHandler) Finalize(ctx context.Context, req *Request) error {
	logOutputDir(ctx, req)
	return nil
}
