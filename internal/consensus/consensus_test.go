package consensus

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"conclave/internal/normalize"
)

type ConsensusSuite struct {
	suite.Suite

	agg *Aggregator
}

func TestConsensusSuite(t *testing.T) {
	suite.Run(t, new(ConsensusSuite))
}

func (s *ConsensusSuite) SetupTest() {
	s.agg = NewAggregator(Config{}, nil)
}

func rec(id, origin, conclusion string) *normalize.Record {
	return &normalize.Record{ResponderID: id, Origin: origin, Conclusion: conclusion}
}

func (s *ConsensusSuite) TestSplitPanel() {
	rep := s.agg.Aggregate([]*normalize.Record{
		rec("r1", "US", "Label A"),
		rec("r2", "US", "label a"),
		rec("r3", "FR", "Label B"),
		rec("r4", "CN", "Label B"),
		rec("r5", "CA", "Label C"),
	})

	s.Require().Len(rep.Labels, 3)
	s.Equal(5, rep.Parseable)

	byCanon := map[string]Label{}
	sum := 0.0
	for _, lbl := range rep.Labels {
		byCanon[lbl.Canonical] = lbl
		sum += lbl.Fraction
	}
	s.InDelta(1.0, sum, 1e-9)

	s.InDelta(0.4, byCanon["label a"].Fraction, 1e-9)
	s.InDelta(0.4, byCanon["label b"].Fraction, 1e-9)
	s.InDelta(0.2, byCanon["label c"].Fraction, 1e-9)
	s.Equal(TierPrimary, byCanon["label a"].Tier)
	s.Equal(TierPrimary, byCanon["label b"].Tier)
	s.Equal(TierAlternative, byCanon["label c"].Tier)
	s.Equal(StrengthNone, rep.Strength)
	s.Equal(4, rep.OriginDiversity)

	// Per-label origin spread travels with each label, not just the run.
	s.Equal(1, byCanon["label a"].OriginDiversity)
	s.Equal(2, byCanon["label b"].OriginDiversity)
	s.Equal(1, byCanon["label c"].OriginDiversity)
}

func (s *ConsensusSuite) TestCaseAndWhitespaceFolding() {
	rep := s.agg.Aggregate([]*normalize.Record{
		rec("r1", "US", "Iron   Deficiency Anemia"),
		rec("r2", "FR", "iron deficiency anemia"),
	})

	s.Require().Len(rep.Labels, 1)
	s.Equal(2, rep.Labels[0].Count)
	s.Equal("Iron   Deficiency Anemia", rep.Labels[0].Display)
}

func (s *ConsensusSuite) TestUnparsedExcludedFromDenominator() {
	rep := s.agg.Aggregate([]*normalize.Record{
		rec("r1", "US", "Label A"),
		rec("r2", "FR", "Label A"),
		rec("r3", "CN", "Label B"),
		rec("r4", "CA", ""),
	})

	s.Equal(4, rep.Total)
	s.Equal(3, rep.Parseable)
	s.Equal(1, rep.UnparsedCount)
	s.InDelta(0.25, rep.UnparsedShare, 1e-9)

	s.Require().Len(rep.Labels, 2)
	s.InDelta(2.0/3.0, rep.Labels[0].Fraction, 1e-9)
	// The unparsed responder's origin does not count toward diversity.
	s.Equal(3, rep.OriginDiversity)
}

func (s *ConsensusSuite) TestTierBoundariesRoundUp() {
	agg := NewAggregator(Config{}, nil)
	records := make([]*normalize.Record, 0, 10)
	for i := 0; i < 3; i++ {
		records = append(records, rec(string(rune('a'+i)), "US", "thirty"))
	}
	records = append(records, rec("k", "FR", "ten"))
	for i := 0; i < 6; i++ {
		records = append(records, rec(string(rune('p'+i)), "CN", "rest"))
	}

	rep := agg.Aggregate(records)
	byCanon := map[string]Label{}
	for _, lbl := range rep.Labels {
		byCanon[lbl.Canonical] = lbl
	}

	// 3/10 sits exactly on the primary cut and 1/10 exactly on the
	// alternative cut; both round up.
	s.Equal(TierPrimary, byCanon["thirty"].Tier)
	s.Equal(TierAlternative, byCanon["ten"].Tier)
}

func (s *ConsensusSuite) TestMinorityNeverPruned() {
	records := []*normalize.Record{rec("r1", "US", "common")}
	for i := 0; i < 19; i++ {
		records = append(records, rec(string(rune('a'+i)), "US", "common"))
	}
	records = append(records, rec("lone", "FR", "rare"))

	rep := s.agg.Aggregate(records)
	s.Require().Len(rep.Labels, 2)
	s.Equal(TierMinority, rep.Labels[1].Tier)
	s.Equal(1, rep.Labels[1].Count)
}

func (s *ConsensusSuite) TestStrength() {
	strong := s.agg.Aggregate([]*normalize.Record{
		rec("r1", "US", "A"), rec("r2", "FR", "A"), rec("r3", "CN", "A"), rec("r4", "CA", "B"),
	})
	s.Equal(StrengthStrong, strong.Strength)

	partial := s.agg.Aggregate([]*normalize.Record{
		rec("r1", "US", "A"), rec("r2", "FR", "A"), rec("r3", "CN", "B"), rec("r4", "CA", "C"),
	})
	s.Equal(StrengthPartial, partial.Strength)

	none := s.agg.Aggregate([]*normalize.Record{rec("r1", "US", "")})
	s.Equal(StrengthNone, none.Strength)
	s.Empty(none.Labels)
}

func (s *ConsensusSuite) TestSynonymsMergeExplicitly() {
	table := NewSynonymTable(map[string][]string{
		"myocardial infarction": {"heart attack", "MI"},
	})
	agg := NewAggregator(Config{}, table)

	rep := agg.Aggregate([]*normalize.Record{
		rec("r1", "US", "Heart Attack"),
		rec("r2", "FR", "myocardial infarction"),
		rec("r3", "CN", "mi"),
		rec("r4", "CA", "cardiac arrest"),
	})

	s.Require().Len(rep.Labels, 2)
	s.Equal("myocardial infarction", rep.Labels[0].Canonical)
	s.Equal(3, rep.Labels[0].Count)
	// No table entry, no merge: near-misses stay separate.
	s.Equal("cardiac arrest", rep.Labels[1].Canonical)
}

func (s *ConsensusSuite) TestLoadSynonyms() {
	path := filepath.Join(s.T().TempDir(), "synonyms.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("canonical one:\n  - variant a\n  - Variant  B\n"), 0o600))

	table, err := LoadSynonyms(path)
	s.Require().NoError(err)
	s.Equal("canonical one", table.Canonicalize("VARIANT A"))
	s.Equal("canonical one", table.Canonicalize("variant b"))
	s.Equal("untouched", table.Canonicalize("Untouched"))

	empty, err := LoadSynonyms("")
	s.Require().NoError(err)
	s.Equal("x", empty.Canonicalize("X"))

	_, err = LoadSynonyms(filepath.Join(s.T().TempDir(), "absent.yaml"))
	s.Error(err)
}

func (s *ConsensusSuite) TestFractionsSumWithinTolerance() {
	records := make([]*normalize.Record, 0, 7)
	labels := []string{"a", "b", "c", "a", "b", "a", "d"}
	for i, l := range labels {
		records = append(records, rec(string(rune('r'+i)), "US", l))
	}

	rep := s.agg.Aggregate(records)
	sum := 0.0
	for _, lbl := range rep.Labels {
		sum += lbl.Fraction
	}
	s.Less(math.Abs(sum-1.0), 1e-9)
}

func (s *ConsensusSuite) TestBiasAttribution() {
	rep := s.agg.Aggregate([]*normalize.Record{
		rec("r1", "CN", "skewed"),
		rec("r2", "CN", "skewed"),
		rec("r3", "CN", "skewed"),
		rec("r4", "US", "mixed"),
		rec("r5", "FR", "mixed"),
		rec("r6", "CA", "lone"),
	})

	bias := AttributeBias(rep)
	s.Equal(3, bias.Matrix["skewed"]["CN"])
	s.NotEmpty(bias.Note)

	s.Require().Len(bias.Flags, 1)
	s.Equal("skewed", bias.Flags[0].Label)
	s.Equal("CN", bias.Flags[0].Origin)
	s.InDelta(1.0, bias.Flags[0].Share, 1e-9)
}

func (s *ConsensusSuite) TestBiasSingleSupporterNotFlagged() {
	rep := s.agg.Aggregate([]*normalize.Record{
		rec("r1", "US", "solo"),
		rec("r2", "US", "pair"),
		rec("r3", "FR", "pair"),
	})

	bias := AttributeBias(rep)
	s.Empty(bias.Flags)
}
