package facematch

// FacePresence records whether a face was found in a candidate image.
type FacePresence int

const (
	// FaceUnknown means the image has not been probed, or the probe failed.
	FaceUnknown FacePresence = iota
	FacePresent
	FaceAbsent
)

func (p FacePresence) String() string {
	switch p {
	case FacePresent:
		return "present"
	case FaceAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// CandidateImage is one image of the candidate pool.
// Ref is the stable key the oracle resolves to bytes; URL is what callers display.
type CandidateImage struct {
	Ref  string       `json:"ref"`
	URL  string       `json:"url"`
	Face FacePresence `json:"-"`
}

// CandidatesFromRefs builds candidates whose URL is the reference itself.
func CandidatesFromRefs(refs []string) []CandidateImage {
	out := make([]CandidateImage, len(refs))
	for i, ref := range refs {
		out[i] = CandidateImage{Ref: ref, URL: ref}
	}
	return out
}

// ComparisonResult is the outcome of comparing the source against one candidate.
// It is produced once per candidate per run and never modified afterwards.
type ComparisonResult struct {
	CandidateRef string
	URL          string
	Index        int // position of the candidate in the input order
	Outcome      OutcomeKind
	similarity   float64
}

func newComparisonResult(c CandidateImage, index int, o Outcome) ComparisonResult {
	r := ComparisonResult{
		CandidateRef: c.Ref,
		URL:          c.URL,
		Index:        index,
		Outcome:      o.Kind,
	}
	if o.Kind == OutcomeSuccess {
		r.similarity = o.Similarity
	}
	return r
}

// Succeeded reports whether the oracle produced a similarity for this candidate.
func (r ComparisonResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Similarity returns the similarity in [0,100]; ok is false when the comparison did not succeed.
func (r ComparisonResult) Similarity() (similarity float64, ok bool) {
	if !r.Succeeded() {
		return 0, false
	}
	return r.similarity, true
}

// MatchRecord is a candidate that cleared the match threshold.
type MatchRecord struct {
	URL        string  `json:"url"`
	Similarity float64 `json:"similarity"`
}

// MatchReport is the outcome of a ranked-match run.
type MatchReport struct {
	Matches    []MatchRecord `json:"matches"`
	RankedURLs []string      `json:"ranked_urls"`
	Summary    string        `json:"summary"`
	Processed  int           `json:"processed"`
	NoFace     int           `json:"no_face"`
	Failed     int           `json:"failed"`
}

// Group is one identity cluster. The representative is fixed at creation and
// is always Members[0]; members are only ever appended.
type Group struct {
	ID             string           `json:"id"`
	Representative CandidateImage   `json:"representative"`
	Members        []CandidateImage `json:"members"`
}

// MemberRefs returns the member references in join order.
func (g Group) MemberRefs() []string {
	refs := make([]string, len(g.Members))
	for i, m := range g.Members {
		refs[i] = m.Ref
	}
	return refs
}

// ClusterPartition is the result of a clustering run. Groups are kept in
// creation order; every input image is either in exactly one group or in NoFace.
type ClusterPartition struct {
	Groups []Group
	NoFace []CandidateImage
}

// Group returns the group with the given id.
func (p *ClusterPartition) Group(id string) (Group, bool) {
	for _, g := range p.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// ClusterGroupView is the caller-facing shape of a group.
type ClusterGroupView struct {
	ID             string   `json:"id"`
	Representative string   `json:"representative"`
	MemberRefs     []string `json:"member_refs"`
	MemberURLs     []string `json:"member_urls"`
}

// ClusterView is the caller-facing shape of a partition.
type ClusterView struct {
	Groups     []ClusterGroupView `json:"groups"`
	NoFaceRefs []string           `json:"no_face_refs"`
}

// View flattens the partition into references for API and CLI output.
func (p *ClusterPartition) View() ClusterView {
	view := ClusterView{
		Groups:     make([]ClusterGroupView, 0, len(p.Groups)),
		NoFaceRefs: make([]string, 0, len(p.NoFace)),
	}
	for _, g := range p.Groups {
		urls := make([]string, len(g.Members))
		for i, m := range g.Members {
			urls[i] = m.URL
		}
		view.Groups = append(view.Groups, ClusterGroupView{
			ID:             g.ID,
			Representative: g.Representative.Ref,
			MemberRefs:     g.MemberRefs(),
			MemberURLs:     urls,
		})
	}
	for _, img := range p.NoFace {
		view.NoFaceRefs = append(view.NoFaceRefs, img.Ref)
	}
	return view
}
