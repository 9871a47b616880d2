package facematch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type pair struct {
	source string
	target string
}

// fakeOracle answers from scripted tables and records how it was called.
type fakeOracle struct {
	mu sync.Mutex

	faces      map[string]int
	detectErrs map[string]error
	similarity map[pair][]float64
	compareErr map[pair]error
	// byTarget answers comparisons whose pair is not scripted.
	byTarget map[string][]float64
	delay    time.Duration

	events       []string
	inFlight     int
	maxInFlight  int
	detectCalls  int
	compareCalls int
	comparePairs []pair
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		faces:      map[string]int{},
		detectErrs: map[string]error{},
		similarity: map[pair][]float64{},
		compareErr: map[pair]error{},
		byTarget:   map[string][]float64{},
	}
}

func (f *fakeOracle) DetectFaces(_ context.Context, ref string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detectCalls++
	if err, ok := f.detectErrs[ref]; ok {
		return 0, err
	}
	return f.faces[ref], nil
}

func (f *fakeOracle) CompareFaces(_ context.Context, sourceRef, targetRef string, _ float64) ([]float64, error) {
	p := pair{source: sourceRef, target: targetRef}

	f.mu.Lock()
	f.compareCalls++
	f.comparePairs = append(f.comparePairs, p)
	f.events = append(f.events, "start:"+targetRef)
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	f.events = append(f.events, "end:"+targetRef)

	if err, ok := f.compareErr[p]; ok {
		return nil, err
	}
	if sims, ok := f.similarity[p]; ok {
		return sims, nil
	}
	return f.byTarget[targetRef], nil
}

// matches scripts a symmetric-looking match between source and target.
func (f *fakeOracle) matches(source, target string, similarity float64) {
	f.similarity[pair{source: source, target: target}] = []float64{similarity}
}

func candidateRefs(n int) []CandidateImage {
	out := make([]CandidateImage, n)
	for i := range n {
		ref := fmt.Sprintf("events/jan/e1/images/img-%02d.jpg", i)
		out[i] = CandidateImage{Ref: ref, URL: "https://ps-pics.s3.amazonaws.com/" + ref}
	}
	return out
}

var testScope = Scope{Owner: "jan@example.com", EventID: "e1"}
