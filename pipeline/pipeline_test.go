package pipeline

import (
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/finalik/logging"
)

type counter struct {
	name  string
	order *[]string
}

func (c *counter) Name() string { return c.name }
func (c *counter) Update()      { *c.order = append(*c.order, c.name) }

func TestRunOrder(t *testing.T) {
	var order []string
	record := func(name string) func() error {
		return func() error {
			order = append(order, name)
			return nil
		}
	}
	p := New(logging.NewTestLogger(t)).
		AddFunc("fix", record("fix")).
		Add(UpdateStage(&counter{name: "spine", order: &order})).
		AddFunc("post", record("post"))

	test.That(t, p.Len(), test.ShouldEqual, 3)
	test.That(t, p.Stages(), test.ShouldResemble, []string{"fix", "spine", "post"})
	test.That(t, p.Run(), test.ShouldBeNil)
	test.That(t, p.Run(), test.ShouldBeNil)
	test.That(t, order, test.ShouldResemble, []string{"fix", "spine", "post", "fix", "spine", "post"})
}

func TestRunCollectsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errC := errors.New("c failed")
	ran := false
	p := New(nil).
		AddFunc("a", func() error { return errA }).
		AddFunc("b", func() error {
			ran = true
			return nil
		}).
		AddFunc("c", func() error { return errC })

	err := p.Run()
	test.That(t, ran, test.ShouldBeTrue)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 2)
	test.That(t, errors.Is(err, errA), test.ShouldBeTrue)
	test.That(t, errors.Is(err, errC), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, `stage "c"`)
}
