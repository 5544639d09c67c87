package replay

import (
	"math/rand/v2"
)

// finishKey ends a waitforbuttonpress session after generated clicks.
const finishKey = "enter"

// GenerateClicks builds a ginput script of n left clicks spread over a
// width x height figure, followed by the finish button. The same seed
// always yields the same script.
func GenerateClicks(n int, width, height float64, seed uint64) *Script {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	s := &Script{
		Session: &SessionSpec{Mode: "ginput", Count: -1, TimeoutMS: -1},
		Events:  make([]Step, 0, n+1),
	}
	for range n {
		s.Events = append(s.Events, Step{
			X:      r.Float64() * width,
			Y:      r.Float64() * height,
			Button: "left",
		})
	}
	s.Events = append(s.Events, Step{Button: "middle"})
	return s
}

// GenerateKeys builds a script that presses key once for a
// waitforbuttonpress session.
func GenerateKeys() *Script {
	return &Script{
		Session: &SessionSpec{Mode: "waitforbuttonpress", TimeoutMS: -1},
		Events:  []Step{{Key: finishKey}},
	}
}
