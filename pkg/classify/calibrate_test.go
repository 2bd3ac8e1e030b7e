package classify

import (
	"math/rand"
	"reflect"
	"testing"
)

func hasWarning(ws []Warning, code WarningCode) bool {
	for _, w := range ws {
		if w.Code == code {
			return true
		}
	}
	return false
}

func defaultCalibration() CalibrationParams {
	return CalibrationParams{Strategy: StrategyReference, PExc: 0.1, MarginUCR: 0.1}
}

func TestCalibrateTwoWellSeparatedClusters(t *testing.T) {
	items := [][]float64{
		{0.1, 0.2, 0.1, 0.2},
		{9.8, 10.1, 9.9, 10.0},
	}
	means := []float64{0.15, 9.95}

	cal, err := Calibrate(means, items, []int{0}, defaultCalibration())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cal.Decisions, []Decision{Baseline, Signal}) {
		t.Errorf("decisions = %v", cal.Decisions)
	}
	if !cal.Crossed || cal.Threshold <= 0.2 || cal.Threshold >= 9.8 {
		t.Errorf("threshold %v outside (0.2, 9.8)", cal.Threshold)
	}
	if cal.Lower > cal.Threshold || cal.Upper < cal.Threshold {
		t.Errorf("margin band [%v, %v] does not contain %v", cal.Lower, cal.Upper, cal.Threshold)
	}
	if !hasWarning(cal.Warnings, WarnSingleReferenceCluster) {
		t.Error("expected a single_reference_cluster warning")
	}
	if hasWarning(cal.Warnings, WarnLowSeparation) {
		t.Error("well separated clusters should not warn")
	}

	t.Run("clipped", func(t *testing.T) {
		p := defaultCalibration()
		p.ThMax = ptr(0.1)
		cal, err := Calibrate(means, items, []int{0}, p)
		if err != nil {
			t.Fatal(err)
		}
		if cal.Threshold != 0.1 {
			t.Errorf("threshold %v, want 0.1", cal.Threshold)
		}
	})
}

func TestCalibrateSingleItemReference(t *testing.T) {
	means := []float64{0.1, 5, 5.2}
	items := [][]float64{{0.1}, {5}, {5.2}}
	cal, err := Calibrate(means, items, []int{0}, defaultCalibration())
	if err != nil {
		t.Fatal(err)
	}
	if cal.Model.V0 != 0 {
		t.Errorf("V0 = %v, want 0", cal.Model.V0)
	}
	if !reflect.DeepEqual(cal.Decisions, []Decision{Baseline, Signal, Signal}) {
		t.Errorf("decisions = %v", cal.Decisions)
	}
}

func TestCalibrateEmptySignalSet(t *testing.T) {
	means := []float64{0.9, 1.1}
	items := [][]float64{{0.9, 0.9}, {1.1, 1.1}}
	cal, err := Calibrate(means, items, []int{0, 1}, defaultCalibration())
	if err != nil {
		t.Fatal(err)
	}
	m := cal.Model
	if m.W1 != 0 || !almostEqual(m.M1, 1.2) || m.V1 != m.V0 {
		t.Errorf("synthesized Signal component = %+v", m)
	}
	if !hasWarning(cal.Warnings, WarnEmptySignalSet) {
		t.Error("expected an empty_signal_set warning")
	}
	if !hasWarning(cal.Warnings, WarnLowSeparation) {
		t.Error("expected a low_separation warning")
	}
}

func TestCalibrateTrimsSignalTails(t *testing.T) {
	means := []float64{0, 0.1, 5, 6, 7, 8, 9, 10, 11, 12, 13, 40}
	items := make([][]float64, len(means))
	for i, m := range means {
		items[i] = []float64{m}
	}
	cal, err := Calibrate(means, items, []int{0, 1}, defaultCalibration())
	if err != nil {
		t.Fatal(err)
	}
	// Ten candidates, one trimmed from each end: 6..13.
	if !almostEqual(cal.Model.M1, 9.5) {
		t.Errorf("M1 = %v, want 9.5", cal.Model.M1)
	}
	if !almostEqual(cal.Model.W1, 8.0/12) {
		t.Errorf("W1 = %v, want %v", cal.Model.W1, 8.0/12)
	}
}

func TestCalibrateThresholdProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	for trial := 0; trial < 300; trial++ {
		k := 2 + rng.Intn(10)
		means := make([]float64, k)
		items := make([][]float64, k)
		for c := range means {
			means[c] = rng.NormFloat64() * 3
			items[c] = []float64{means[c] - 0.1, means[c] + 0.1}
		}
		ref := rng.Perm(k)[:1+rng.Intn(k-1)]

		cal, err := Calibrate(means, items, ref, defaultCalibration())
		if err != nil {
			t.Fatal(err)
		}
		if cal.Model.M0 > cal.Model.M1 {
			t.Fatalf("M0 %v > M1 %v", cal.Model.M0, cal.Model.M1)
		}
		if cal.Crossed && (cal.Threshold < cal.Model.M0 || cal.Threshold > cal.Model.M1) {
			t.Fatalf("threshold %v outside [%v, %v]", cal.Threshold, cal.Model.M0, cal.Model.M1)
		}
		if !cal.Crossed && cal.Threshold != NoCrossover {
			t.Fatalf("missing crossover should report %v, got %v", NoCrossover, cal.Threshold)
		}
	}
}

func TestCalibrateLightSignalComponent(t *testing.T) {
	// Twenty reference clusters and a single Signal cluster: the weighted
	// Signal density only overtakes Baseline just past the Signal mean.
	var means []float64
	var items [][]float64
	var ref []int
	for c := 0; c < 20; c++ {
		m := -0.6 + 1.2*float64(c)/19
		means = append(means, m)
		items = append(items, []float64{m})
		ref = append(ref, c)
	}
	means = append(means, 0.9)
	items = append(items, []float64{0.9 - 0.289, 0.9 + 0.289})

	cal, err := Calibrate(means, items, ref, defaultCalibration())
	if err != nil {
		t.Fatal(err)
	}
	if !cal.Crossed {
		t.Fatalf("expected a crossover, got %+v", cal)
	}
	if cal.Threshold <= cal.Model.M1 || cal.Threshold > 1.0 {
		t.Errorf("threshold %v, want just above m1 %v", cal.Threshold, cal.Model.M1)
	}
	for c := 0; c < 20; c++ {
		if cal.Decisions[c] != Baseline {
			t.Fatalf("reference cluster %d (score %.3f) called %s", c, means[c], cal.Decisions[c])
		}
	}
	if cal.Decisions[20] == Baseline {
		t.Error("Signal cluster called Baseline")
	}
	if hasWarning(cal.Warnings, WarnLowSeparation) {
		t.Error("separation below 1 should not warn")
	}
}

func TestCalibrateNoCrossoverCallsBaseline(t *testing.T) {
	// A light, very wide Signal component stays below Baseline over the
	// whole scanned range.
	var means []float64
	var items [][]float64
	var ref []int
	for c := 0; c < 20; c++ {
		m := -1 + 2*float64(c)/19
		means = append(means, m)
		items = append(items, []float64{m})
		ref = append(ref, c)
	}
	means = append(means, 0.7)
	items = append(items, []float64{0.7 - 3, 0.7 + 3})

	cal, err := Calibrate(means, items, ref, defaultCalibration())
	if err != nil {
		t.Fatal(err)
	}
	if cal.Crossed {
		t.Fatalf("unexpected crossover at %v", cal.Threshold)
	}
	if cal.Threshold != NoCrossover || cal.Lower != NoCrossover || cal.Upper != NoCrossover {
		t.Errorf("sentinel not reported: th=%v band=[%v, %v]", cal.Threshold, cal.Lower, cal.Upper)
	}
	for c, d := range cal.Decisions {
		if d != Baseline {
			t.Fatalf("cluster %d (score %.3f) called %s", c, means[c], d)
		}
	}
	if !hasWarning(cal.Warnings, WarnNoCrossover) {
		t.Error("expected a no_crossover warning")
	}
}

func TestCalibrateBimodal(t *testing.T) {
	means := []float64{0.1, 0.2, 0.15, 5, 5.1, 4.9}
	items := make([][]float64, len(means))
	for i, m := range means {
		items[i] = []float64{m}
	}
	p := defaultCalibration()
	p.Strategy = StrategyBimodal
	cal, err := Calibrate(means, items, nil, p)
	if err != nil {
		t.Fatal(err)
	}
	if cal.Model.M0 > 1 || cal.Model.M1 < 4 {
		t.Fatalf("unexpected model %+v", cal.Model)
	}
	want := []Decision{Baseline, Baseline, Baseline, Signal, Signal, Signal}
	if !reflect.DeepEqual(cal.Decisions, want) {
		t.Errorf("decisions = %v", cal.Decisions)
	}

	single, err := Calibrate([]float64{2}, [][]float64{{1.9, 2.1}}, nil, p)
	if err != nil {
		t.Fatal(err)
	}
	if single.Model.M0 != single.Model.M1 {
		t.Errorf("single cluster should give coincident components: %+v", single.Model)
	}
}

func TestCalibrateDuplicateReference(t *testing.T) {
	means := []float64{0.1, 0.3, 5}
	items := [][]float64{{0.1}, {0.3}, {5}}
	once, err := Calibrate(means, items, []int{0, 1}, defaultCalibration())
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Calibrate(means, items, []int{0, 1, 1, 0}, defaultCalibration())
	if err != nil {
		t.Fatal(err)
	}
	if once.Model != twice.Model {
		t.Errorf("repeated reference clusters changed the model: %+v vs %+v", once.Model, twice.Model)
	}
	if !almostEqual(twice.Model.W0, 2.0/3) {
		t.Errorf("W0 = %v, want 2/3", twice.Model.W0)
	}
}

func TestCalibrateRejects(t *testing.T) {
	if _, err := Calibrate(nil, nil, nil, defaultCalibration()); err == nil {
		t.Error("expected an error for no clusters")
	}
	if _, err := Calibrate([]float64{1, 2}, [][]float64{{1}, {2}}, nil, defaultCalibration()); err == nil {
		t.Error("expected an error for an empty reference set")
	}
}
