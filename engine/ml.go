package engine

import "os"

// ModelRunner abstracts a learned resynthesis backend. Run reads one mono
// block from input and writes the corrected block to output, returning
// its own confidence in the result.
type ModelRunner interface {
	Load(path string) error
	Run(input, output []float64, targetPitch, strength float64) (float64, error)
	Info() string
}

// SetModelRunner installs the backend used for ML processing. Passing nil
// removes the backend and disables ML processing.
func (e *Engine) SetModelRunner(runner ModelRunner) {
	e.runner = runner

	if runner == nil {
		e.modelLoaded = false
		e.mlEnabled = false
	}
}

// LoadModel loads model weights from path into the installed backend and
// reports success. It fails without side effects when no backend is
// installed or the file does not exist.
func (e *Engine) LoadModel(path string) bool {
	if e.runner == nil {
		return false
	}

	if _, err := os.Stat(path); err != nil {
		return false
	}

	if err := e.runner.Load(path); err != nil {
		return false
	}

	e.modelLoaded = true

	return true
}

// SetMLProcessingEnabled toggles ML processing. Enabling without a loaded
// model is ignored.
func (e *Engine) SetMLProcessingEnabled(enabled bool) {
	if enabled && !e.modelLoaded {
		return
	}

	e.mlEnabled = enabled
}

// MLProcessingEnabled reports whether the first frame of each corrected
// block is delegated to the model.
func (e *Engine) MLProcessingEnabled() bool {
	return e.mlEnabled
}

// MLModelInfo describes the loaded model, or returns the empty string
// when none is loaded.
func (e *Engine) MLModelInfo() string {
	if !e.modelLoaded || e.runner == nil {
		return ""
	}

	return e.runner.Info()
}
