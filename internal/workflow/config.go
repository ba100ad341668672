package workflow

// Kind names a reviewable entity kind. Entity-kind variation is data, not
// copy-pasted branches: the engine receives a Config and never switches on
// the kind itself.
type Kind string

const (
	KindPosting Kind = "posting"
	KindMember  Kind = "member"
	KindMeeting Kind = "meeting"
	KindAccount Kind = "account"
)

// Config declares the workflow shape for one entity kind. Immutable; supplied
// by the caller at wiring time. The engine reads only the per-record approval
// levels and guarantor flag beyond this.
type Config struct {
	Kind Kind

	// GuarantorAllowed permits the optional guarantor segment. Whether a
	// given record actually takes it is decided once, at the Submitted
	// decision point, and frozen on the record.
	GuarantorAllowed bool

	// POPRequired inserts the proof-of-payment upload/approval pair before
	// Approved.
	POPRequired bool
}

// defaultConfigs is the built-in catalog: financial postings carry both
// optional segments, everything else goes straight from the last numbered
// review to Approved.
var defaultConfigs = map[Kind]Config{
	KindPosting: {Kind: KindPosting, GuarantorAllowed: true, POPRequired: true},
	KindMember:  {Kind: KindMember},
	KindMeeting: {Kind: KindMeeting},
	KindAccount: {Kind: KindAccount},
}

// ConfigFor returns the workflow configuration for a kind. Unknown kinds get
// the plain linear chain.
func ConfigFor(kind Kind) Config {
	if cfg, ok := defaultConfigs[kind]; ok {
		return cfg
	}
	return Config{Kind: kind}
}

// ResolvePath returns the ordered list of stages a record with the given
// approval levels and guarantor decision traverses under cfg:
//
//	Submitted → [Primary] → [Secondary] → [Guarantor] → [POP-Upload → POP-Approval] → Approved
func ResolvePath(cfg Config, levels int, guarantorRequired bool) []Stage {
	path := []Stage{StageSubmitted}
	if levels >= 2 {
		path = append(path, StagePrimary)
	}
	if levels >= 3 {
		path = append(path, StageSecondary)
	}
	if cfg.GuarantorAllowed && guarantorRequired {
		path = append(path, StageGuarantor)
	}
	if cfg.POPRequired {
		path = append(path, StagePOPUpload, StagePOPApproval)
	}
	return append(path, StageApproved)
}
