package pipeline_test

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/upgraph/pkg/pipeline"
	"github.com/matzehuels/upgraph/pkg/upg"
)

func ExampleRunner_Render() {
	caller := &upg.Caller{
		Name:    "crate::foo",
		Safe:    true,
		Callees: map[string]upg.CalleeInfo{"crate::bar": {Safe: true}},
	}

	runner := pipeline.NewRunner(nil, nil, log.NewWithOptions(io.Discard, log.Options{}))
	res, err := runner.Render(context.Background(), caller, nil, pipeline.Options{})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	var ids []string
	for _, n := range res.Diagram.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	fmt.Println(ids)
	for _, e := range res.Diagram.Edges {
		fmt.Println(e.ID, e.Style)
	}
	// Output:
	// [c@crate::bar crate::foo]
	// e@crate::foo->c@crate::bar curve
}
