package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	posting := ConfigFor(KindPosting)
	member := ConfigFor(KindMember)

	tests := []struct {
		name      string
		cfg       Config
		levels    int
		guarantor bool
		want      []Stage
	}{
		{
			name:   "member one level goes straight to approved",
			cfg:    member,
			levels: 1,
			want:   []Stage{StageSubmitted, StageApproved},
		},
		{
			name:   "member three levels",
			cfg:    member,
			levels: 3,
			want:   []Stage{StageSubmitted, StagePrimary, StageSecondary, StageApproved},
		},
		{
			name:   "posting two levels no guarantor",
			cfg:    posting,
			levels: 2,
			want:   []Stage{StageSubmitted, StagePrimary, StagePOPUpload, StagePOPApproval, StageApproved},
		},
		{
			name:      "posting full path",
			cfg:       posting,
			levels:    3,
			guarantor: true,
			want: []Stage{
				StageSubmitted, StagePrimary, StageSecondary,
				StageGuarantor, StagePOPUpload, StagePOPApproval, StageApproved,
			},
		},
		{
			name:      "guarantor intent ignored when kind disallows it",
			cfg:       member,
			levels:    1,
			guarantor: true,
			want:      []Stage{StageSubmitted, StageApproved},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePath(tt.cfg, tt.levels, tt.guarantor)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePath_MonotonicOrdering(t *testing.T) {
	// Every resolved path must be a strictly increasing subsequence of the
	// canonical catalog ordering.
	for _, cfg := range []Config{ConfigFor(KindPosting), ConfigFor(KindMember), ConfigFor(KindMeeting)} {
		for levels := MinApprovalLevels; levels <= MaxApprovalLevels; levels++ {
			for _, g := range []bool{false, true} {
				path := ResolvePath(cfg, levels, g)
				require.NotEmpty(t, path)
				assert.Equal(t, StageSubmitted, path[0])
				assert.Equal(t, StageApproved, path[len(path)-1])
				for i := 1; i < len(path); i++ {
					assert.True(t, path[i-1].Before(path[i]),
						"cfg=%v levels=%d guarantor=%v: %s not before %s",
						cfg.Kind, levels, g, path[i-1], path[i])
				}
			}
		}
	}
}

func TestParseStatusAndStage(t *testing.T) {
	st, err := ParseStatus("approved")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, st)
	assert.True(t, st.Terminal())

	_, err = ParseStatus("bogus")
	assert.Error(t, err)

	sg, err := ParseStage("guarantor_approval")
	require.NoError(t, err)
	assert.Equal(t, StageGuarantor, sg)

	_, err = ParseStage("limbo")
	assert.Error(t, err)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("approve")
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, a)

	_, err = ParseAction("maybe")
	assert.Error(t, err)
}

func TestValidateApprovalLevels(t *testing.T) {
	assert.Error(t, ValidateApprovalLevels(0))
	assert.Error(t, ValidateApprovalLevels(4))
	for l := 1; l <= 3; l++ {
		assert.NoError(t, ValidateApprovalLevels(l))
	}
}
