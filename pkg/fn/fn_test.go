package fn

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

// --- Result ---

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatal("wrong unwrap")
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("Err should be err")
	}
}

func TestFatal(t *testing.T) {
	r := Fatal[int](errors.New("disk full"))
	if r.IsOk() || !r.IsErr() || !r.IsFatal() {
		t.Fatal("Fatal should be a fatal error")
	}
	if Err[int](errors.New("x")).IsFatal() {
		t.Fatal("Err should be recoverable")
	}
	if Ok(1).IsFatal() {
		t.Fatal("Ok is not fatal")
	}
	if r.Error() == nil || r.Error().Error() != "disk full" {
		t.Fatal("Error() should return the failure")
	}
}

func TestPropagateKeepsKind(t *testing.T) {
	f := Propagate[string](Fatal[int](errors.New("f")))
	if !f.IsFatal() {
		t.Fatal("Propagate should keep fatal kind")
	}
	r := MapResult(Err[int](errors.New("r")), func(v int) string { return strconv.Itoa(v) })
	if r.IsOk() || r.IsFatal() {
		t.Fatal("MapResult should keep recoverable kind")
	}
}

func TestErrf(t *testing.T) {
	r := Errf[string]("code %d", 404)
	_, err := r.Unwrap()
	if err == nil || err.Error() != "code 404" {
		t.Fatal("Errf wrong message")
	}
}

func TestMustPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Must should panic on Err")
		}
	}()
	Err[int](errors.New("boom")).Must()
}

func TestMustOk(t *testing.T) {
	v := Ok(7).Must()
	if v != 7 {
		t.Fatal("Must should return value")
	}
}

func TestUnwrapOr(t *testing.T) {
	if Ok(1).UnwrapOr(9) != 1 {
		t.Fatal("should return value")
	}
	if Err[int](errors.New("x")).UnwrapOr(9) != 9 {
		t.Fatal("should return fallback")
	}
}

func TestResultMap(t *testing.T) {
	r := Ok(2).Map(func(v int) int { return v * 3 })
	if r.Must() != 6 {
		t.Fatal("Map failed")
	}
	e := Err[int](errors.New("x")).Map(func(v int) int { return v * 3 })
	if e.IsOk() {
		t.Fatal("Map on Err should stay Err")
	}
}

func TestAndThen(t *testing.T) {
	r := Ok(2).AndThen(func(v int) Result[int] { return Ok(v + 1) })
	if r.Must() != 3 {
		t.Fatal("AndThen failed")
	}
	e := Err[int](errors.New("x")).AndThen(func(v int) Result[int] { return Ok(v + 1) })
	if e.IsOk() {
		t.Fatal("AndThen on Err should stay Err")
	}
}

func TestMapResult(t *testing.T) {
	r := MapResult(Ok(5), func(v int) string { return strconv.Itoa(v) })
	if r.Must() != "5" {
		t.Fatal("MapResult failed")
	}
}

func TestFromPair(t *testing.T) {
	r := FromPair(strconv.Atoi("42"))
	if r.Must() != 42 {
		t.Fatal("FromPair failed")
	}
	e := FromPair(strconv.Atoi("nope"))
	if e.IsOk() {
		t.Fatal("FromPair should fail")
	}
}

func TestCollect(t *testing.T) {
	all := Collect([]Result[int]{Ok(1), Ok(2), Ok(3)})
	v := all.Must()
	if len(v) != 3 || v[0] != 1 {
		t.Fatal("Collect failed")
	}

	bad := Collect([]Result[int]{Ok(1), Err[int](errors.New("e1")), Err[int](errors.New("e2"))})
	_, err := bad.Unwrap()
	if err == nil || err.Error() != "e1" {
		t.Fatal("Collect should return first error")
	}

	empty := Collect([]Result[int]{})
	if !empty.IsOk() || len(empty.Must()) != 0 {
		t.Fatal("Collect empty should be ok")
	}
}

// --- Slice ---

func TestMap(t *testing.T) {
	out := Map([]int{1, 2, 3}, func(v int) string { return strconv.Itoa(v * 2) })
	if len(out) != 3 || out[2] != "6" {
		t.Fatalf("Map = %v", out)
	}
	empty := Map[int, int](nil, func(v int) int { return v })
	if empty == nil || len(empty) != 0 {
		t.Fatal("Map of nil should be empty and non-nil")
	}
}

func TestFilter(t *testing.T) {
	out := Filter([]string{"pending", "failed", "failed"}, func(s string) bool { return s == "failed" })
	if len(out) != 2 {
		t.Fatalf("Filter = %v", out)
	}
	none := Filter([]int{1, 3}, func(v int) bool { return v%2 == 0 })
	if none == nil || len(none) != 0 {
		t.Fatal("Filter with no matches should be empty and non-nil")
	}
}

func TestLast(t *testing.T) {
	items := []int{1, 2, 3, 4}
	tests := []struct {
		n    int
		want int
	}{{2, 2}, {4, 4}, {9, 4}, {0, 4}, {-1, 4}}
	for _, tt := range tests {
		if got := Last(items, tt.n); len(got) != tt.want || got[len(got)-1] != 4 {
			t.Errorf("Last(%d) = %v", tt.n, got)
		}
	}
	if Last([]int(nil), 3) != nil {
		t.Error("Last of nil should be nil")
	}
}

// --- Pipeline ---

func TestThen(t *testing.T) {
	double := Stage[int, int](func(_ context.Context, v int) Result[int] { return Ok(v * 2) })
	addOne := Stage[int, int](func(_ context.Context, v int) Result[int] { return Ok(v + 1) })

	composed := Then(double, addOne)
	r := composed(context.Background(), 5)
	if r.Must() != 11 {
		t.Fatal("Then failed")
	}
}

func TestThenShortCircuits(t *testing.T) {
	fail := Stage[int, int](func(_ context.Context, _ int) Result[int] { return Err[int](errors.New("fail")) })
	called := false
	second := Stage[int, int](func(_ context.Context, v int) Result[int] {
		called = true
		return Ok(v)
	})

	r := Then(fail, second)(context.Background(), 1)
	if r.IsOk() || called {
		t.Fatal("Then should short-circuit")
	}
}

func TestThenPropagatesFatal(t *testing.T) {
	fail := Stage[int, int](func(_ context.Context, _ int) Result[int] { return Fatal[int](errors.New("fatal")) })
	second := Stage[int, string](func(_ context.Context, v int) Result[string] { return Ok(strconv.Itoa(v)) })

	r := Then(fail, second)(context.Background(), 1)
	if !r.IsFatal() {
		t.Fatal("Then should keep the fatal kind")
	}
}

func TestPipeline(t *testing.T) {
	inc := Stage[int, int](func(_ context.Context, v int) Result[int] { return Ok(v + 1) })
	p := Pipeline(inc, inc, inc)
	if p(context.Background(), 0).Must() != 3 {
		t.Fatal("Pipeline failed")
	}
}

func TestMapStage(t *testing.T) {
	s := MapStage(func(v int) string { return strconv.Itoa(v) })
	r := s(context.Background(), 42)
	if r.Must() != "42" {
		t.Fatal("MapStage failed")
	}
}

func TestTapStage(t *testing.T) {
	var captured int
	s := TapStage(func(_ context.Context, v int) { captured = v })
	r := s(context.Background(), 7)
	if r.Must() != 7 || captured != 7 {
		t.Fatal("TapStage failed")
	}
}

func TestTracedStage(t *testing.T) {
	s := TracedStage("test-stage", Stage[int, int](func(_ context.Context, v int) Result[int] { return Ok(v + 1) }))
	r := s(context.Background(), 1)
	if r.Must() != 2 {
		t.Fatal("TracedStage failed")
	}

	// Error case
	e := TracedStage("err-stage", Stage[int, int](func(_ context.Context, _ int) Result[int] { return Err[int](errors.New("x")) }))
	if e(context.Background(), 1).IsOk() {
		t.Fatal("TracedStage error should propagate")
	}
}

// --- Retry ---

func TestRetrySuccess(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, Jitter: false}, func(_ context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Err[int](errors.New("not yet"))
		}
		return Ok(42)
	})
	if r.Must() != 42 || attempts != 3 {
		t.Fatal("Retry should succeed on 3rd attempt")
	}
}

func TestRetryExhausted(t *testing.T) {
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, Jitter: false}, func(_ context.Context) Result[int] {
		return Err[int](errors.New("fail"))
	})
	if r.IsOk() {
		t.Fatal("Retry should fail after exhausting attempts")
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	r := Retry(ctx, RetryOpts{MaxAttempts: 100, InitialWait: 10 * time.Millisecond, Jitter: false}, func(ctx context.Context) Result[int] {
		attempts++
		return Err[int](errors.New("fail"))
	})
	if r.IsOk() {
		t.Fatal("Retry should fail on context cancel")
	}
}

func TestRetryStopsOnFatal(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 5, InitialWait: time.Millisecond}, func(_ context.Context) Result[int] {
		attempts++
		return Fatal[int](errors.New("unwritable"))
	})
	if !r.IsFatal() || attempts != 1 {
		t.Fatalf("expected one attempt and fatal result, got %d attempts", attempts)
	}
}

func TestRetryStage(t *testing.T) {
	attempts := 0
	s := RetryStage(RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, Jitter: false},
		Stage[int, int](func(_ context.Context, v int) Result[int] {
			attempts++
			if attempts < 2 {
				return Err[int](errors.New("fail"))
			}
			return Ok(v * 2)
		}))
	r := s(context.Background(), 5)
	if r.Must() != 10 {
		t.Fatal("RetryStage failed")
	}
}
