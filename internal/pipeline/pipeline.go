package pipeline

// Pipeline is a fail-fast sequence of stages.
type Pipeline struct {
	processors []Processor
}

// New builds a pipeline from stages in the order they should run.
func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes each stage in order, stopping at the first one that
// appends an error. This tightens the teacher's own pipeline.Run,
// which carries a "for now, we continue on errors" comment — this
// language's error model is strictly fail-fast instead.
func (p *Pipeline) Run(initial *PipelineContext) *PipelineContext {
	ctx := initial
	for _, proc := range p.processors {
		ctx = proc.Process(ctx)
		if len(ctx.Errors) > 0 {
			return ctx
		}
	}
	return ctx
}
