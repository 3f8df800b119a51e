package pipeline

// Stage identifies one of the three generation stages.
type Stage string

const (
	StageIntermediate Stage = "stage1"
	StageOutfit       Stage = "stage2"
	StageFinal        Stage = "stage3"
)

func (s Stage) Valid() bool {
	switch s {
	case StageIntermediate, StageOutfit, StageFinal:
		return true
	}
	return false
}

// Order of the stage within a flow run. Stages are sequential.
func (s Stage) Order() int {
	switch s {
	case StageIntermediate:
		return 1
	case StageOutfit:
		return 2
	case StageFinal:
		return 3
	}
	return 0
}

// StageRequest carries everything one stage needs. Input images come either
// as raw uploads or as keys of objects produced by earlier stages.
type StageRequest struct {
	UserID    string
	RunID     string
	Stage     Stage
	Prompt    string
	Uploads   [][]byte
	InputKeys []string
}

type StageResult struct {
	Key          string   `json:"key"`
	UploadedKeys []string `json:"uploadedKeys,omitempty"`
}
