package ad9361_test

import (
	"errors"
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/linht/ad9361-manager/ad9361"
)

func TestNearlyEqual(t *testing.T) {
	test.That(t, ad9361.NearlyEqual(50e6, 50e6), test.ShouldBeTrue)
	test.That(t, ad9361.NearlyEqual(50e6, 50e6+0.999), test.ShouldBeTrue)
	test.That(t, ad9361.NearlyEqual(50e6, 50e6-0.999), test.ShouldBeTrue)
	test.That(t, ad9361.NearlyEqual(50e6, 50e6+1), test.ShouldBeFalse)
}

func TestPlanBBPLL(t *testing.T) {
	const (
		ref = 40e6
		mod = 2088960
	)
	// quantization step at the VCO is ref/mod; rounding halves it
	for rate := 10.5e6; rate <= 715e6; rate += 0.7311e6 {
		plan, err := ad9361.PlanBBPLL(rate)
		test.That(t, err, test.ShouldBeNil)

		test.That(t, plan.Divider, test.ShouldEqual, 1<<plan.Exponent)
		test.That(t, plan.Exponent, test.ShouldBeBetweenOrEqual, 1, 6)
		test.That(t, plan.VCORate, test.ShouldBeBetweenOrEqual, 672e6, 1430e6)
		test.That(t, plan.Nfrac, test.ShouldBeBetweenOrEqual, 0, mod-1)

		tol := ref/(2*mod)/float64(plan.Divider) + 1e-6
		test.That(t, math.Abs(plan.Actual-rate), test.ShouldBeLessThanOrEqualTo, tol)
		test.That(t, plan.Actual, test.ShouldAlmostEqual, plan.ActualVCO/float64(plan.Divider))
	}
}

func TestPlanBBPLLSmallestDivider(t *testing.T) {
	// 600 MHz fits with divider 2 and 4 would overshoot
	plan, err := ad9361.PlanBBPLL(600e6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plan.Divider, test.ShouldEqual, 2)
	test.That(t, plan.Nint, test.ShouldEqual, 30)
	test.That(t, plan.Nfrac, test.ShouldEqual, 0)
	test.That(t, plan.Actual, test.ShouldEqual, 600e6)

	// 100 MHz needs divider 8 (800 MHz VCO)
	plan, err = ad9361.PlanBBPLL(100e6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plan.Divider, test.ShouldEqual, 8)
	test.That(t, plan.Nint, test.ShouldEqual, 20)
}

func TestPlanRFPLL(t *testing.T) {
	const (
		ref = 80e6
		mod = 8388593
	)
	for freq := 47e6; freq <= 6e9; freq *= 1.0731 {
		plan, err := ad9361.PlanRFPLL(freq)
		test.That(t, err, test.ShouldBeNil)

		test.That(t, plan.Divider, test.ShouldEqual, 2<<plan.Exponent)
		test.That(t, plan.VCORate, test.ShouldBeBetweenOrEqual, 6e9, 12e9)
		test.That(t, plan.Nfrac, test.ShouldBeBetweenOrEqual, 0, mod-1)

		tol := ref/(2*mod)/float64(plan.Divider) + 1e-6
		test.That(t, math.Abs(plan.Actual-freq), test.ShouldBeLessThanOrEqualTo, tol)
	}

	plan, err := ad9361.PlanRFPLL(800e6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plan.Divider, test.ShouldEqual, 8)
	test.That(t, plan.Exponent, test.ShouldEqual, 2)
	test.That(t, plan.Nint, test.ShouldEqual, 80)
	test.That(t, plan.Nfrac, test.ShouldEqual, 0)
}

func TestPlanNoValidDivider(t *testing.T) {
	for _, rate := range []float64{0, -1, 6e6, 10e6, 716e6, math.NaN(), math.Inf(1)} {
		_, err := ad9361.PlanBBPLL(rate)
		test.That(t, errors.Is(err, ad9361.ErrNoValidDivider), test.ShouldBeTrue)
		test.That(t, errors.Is(err, ad9361.ErrInvalidParameter), test.ShouldBeTrue)
	}
	for _, freq := range []float64{0, 10e6, 46e6, 6.1e9, math.NaN()} {
		_, err := ad9361.PlanRFPLL(freq)
		test.That(t, errors.Is(err, ad9361.ErrNoValidDivider), test.ShouldBeTrue)
	}
}
