package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hybridhe/switchmin/engine/lattice"
	"github.com/hybridhe/switchmin/logging"
	"github.com/hybridhe/switchmin/protocol"
)

func main() {
	params := protocol.DefaultParameterSet()

	ring := flag.Int("ring", params.RingDim, "Ring dimension of the arithmetic scheme (power of two)")
	batch := flag.Int("batch", params.BatchSize, "Number of plaintext slots used by the input vector")
	depth := flag.Int("depth", params.BaseDepth, "Base multiplicative depth before the tournament surcharge")
	compLogQ := flag.Int("complogq", params.CompLogQ, "Bit-width of the comparison scheme modulus")
	oneHot := flag.Bool("onehot", params.OneHot, "Round the indicator to a one-hot vector")
	baseG := flag.Uint("baseg", uint(protocol.DefaultBaseGs()[0]), "Bootstrapping decomposition base (power of two)")
	input := flag.String("input", "-1.125,-1.12,5.0,6.0", "Comma-separated input values")
	dir := flag.String("dir", "demoData", "Artifact store directory")
	tolerance := flag.Float64("tol", 0, "Verification tolerance (0 selects the default)")
	debug := flag.Bool("debug", false, "Print per-artifact progress")
	flag.Parse()

	params.RingDim = *ring
	params.BatchSize = *batch
	params.BaseDepth = *depth
	params.CompLogQ = *compLogQ
	params.OneHot = *oneHot

	values, err := parseValues(*input)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	store, err := protocol.NewFileStore(*dir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	res, err := protocol.Run(protocol.RunConfig{
		Params:              params,
		BaseGs:              []uint32{uint32(*baseG)},
		Input:               values,
		Store:               store,
		NewPublisherSession: func() protocol.Session { return lattice.New() },
		NewWorkerSession:    func() protocol.Session { return lattice.New() },
		Tolerance:           *tolerance,
		Log:                 logging.New(*debug),
	})
	if err != nil {
		fmt.Printf("Error (last phase %s): %v\n", res.Phase, err)
		os.Exit(1)
	}

	fmt.Printf("Input vector:        %v\n", values)
	fmt.Printf("Decrypted indicator: %v\n", res.Report.Indicator)
	fmt.Printf("Minimum at position: %d\n", res.Report.Position)
	fmt.Printf("Max abs error:       %.3g\n", res.Report.MaxAbsErr)
}

func parseValues(csv string) ([]float64, error) {
	fields := strings.Split(csv, ",")
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid input value %q", f)
		}
		values = append(values, v)
	}
	return values, nil
}
