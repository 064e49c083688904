package domain

type ImportStep string

const (
	ImportStepUpload       ImportStep = "upload"
	ImportStepDetection    ImportStep = "detection"
	ImportStepMapping      ImportStep = "mapping"
	ImportStepSmartMapping ImportStep = "smart_mapping"
	ImportStepProcessing   ImportStep = "processing"
	ImportStepSummary      ImportStep = "summary"
)

// stepOrder fixes the strictly linear forward sequence of an import session.
var stepOrder = []ImportStep{
	ImportStepUpload,
	ImportStepDetection,
	ImportStepMapping,
	ImportStepSmartMapping,
	ImportStepProcessing,
	ImportStepSummary,
}

func stepIndex(s ImportStep) int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// CanAdvance reports whether from -> to is the next forward transition.
func CanAdvance(from, to ImportStep) bool {
	fi, ti := stepIndex(from), stepIndex(to)
	return fi >= 0 && ti == fi+1
}

// CanGoBack reports whether to is any earlier step. Summary is terminal:
// no backward navigation once the run has completed.
func CanGoBack(from, to ImportStep) bool {
	if from == ImportStepSummary {
		return false
	}
	fi, ti := stepIndex(from), stepIndex(to)
	return fi >= 0 && ti >= 0 && ti < fi
}

// NextStep returns the forward neighbour, or the same step at the end.
func NextStep(from ImportStep) ImportStep {
	fi := stepIndex(from)
	if fi < 0 || fi == len(stepOrder)-1 {
		return from
	}
	return stepOrder[fi+1]
}
