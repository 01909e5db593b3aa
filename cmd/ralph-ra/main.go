package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/raymyers/ralph-ra/pkg/asm"
	"github.com/raymyers/ralph-ra/pkg/regalloc"
	"github.com/raymyers/ralph-ra/pkg/stacking"
	"github.com/raymyers/ralph-ra/pkg/target"
	"github.com/raymyers/ralph-ra/pkg/x86"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xyproto/env/v2"
)

var version = "0.1.0"

// Debug flags for dumping allocator state
var (
	dIntervals bool
	dGraph     bool
	dAlloc     bool
)

var (
	catalogPath string
	trace       bool
	withFrame   bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Normalize single-dash debug flags to double-dash for pflag compatibility
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the debug flags that accept single-dash style
var debugFlagNames = []string{"dintervals", "dgraph", "dalloc"}

// normalizeFlags converts single-dash flags like -dalloc to --dalloc
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-ra [listing.yaml]",
		Short: "ralph-ra assigns registers and stack slots to virtual-register listings",
		Long: `ralph-ra reads a YAML listing of target instructions over virtual
registers and stack slots, runs graph-coloring register allocation and
stack slot assignment on every function, and prints the rewritten listing.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			if err := doAllocate(args[0], out, errOut); err != nil {
				fmt.Fprintf(errOut, "ralph-ra: %v\n", err)
				return err
			}
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.Flags()
	addDebugFlags(flags)
	flags.StringVarP(&catalogPath, "target", "t", env.Str("RALPH_RA_TARGET"), "Register catalog YAML (default: built-in x86-64)")
	flags.BoolVar(&trace, "trace", env.Bool("RALPH_RA_TRACE"), "Trace allocator decisions to stderr")
	flags.BoolVar(&withFrame, "frame", false, "Emit prologue and epilogue around each function")
	flags.SortFlags = false

	return rootCmd
}

func addDebugFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&dIntervals, "dintervals", false, "Dump live intervals of every allocation round")
	flags.BoolVar(&dGraph, "dgraph", false, "Dump the interference graph of every allocation round")
	flags.BoolVar(&dAlloc, "dalloc", false, "Dump the final register and slot assignment")
}

// loadMachine returns the x86-64 target, optionally with a custom catalog
func loadMachine(path string) (*x86.Machine, error) {
	if path == "" {
		return x86.New()
	}
	catalog, err := target.LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	return x86.NewWithCatalog(catalog), nil
}

// doAllocate allocates every function of a listing and prints the result
func doAllocate(filename string, out, errOut io.Writer) error {
	machine, err := loadMachine(catalogPath)
	if err != nil {
		return err
	}
	prog, err := asm.NewParser(machine.Catalog()).LoadListingFile(filename)
	if err != nil {
		return err
	}

	opts := regalloc.Options{}
	if trace {
		opts.Trace = errOut
	}
	if dIntervals {
		opts.Intervals = out
	}
	if dGraph {
		opts.Graph = out
	}

	printer := asm.NewPrinter(out)
	for i, fn := range prog.Functions {
		result, err := regalloc.AllocateFunction(machine, fn, opts)
		if err != nil {
			return err
		}
		catalog := machine.Catalog()
		used := result.AssignedRegisters()
		layout := stacking.ComputeLayout(result.StackSize, stacking.CalleeSavedUsed(catalog, used))
		if withFrame {
			if err := stacking.InsertFrame(fn, catalog, layout); err != nil {
				return err
			}
		}

		if i > 0 {
			fmt.Fprintln(out)
		}
		printFrame(out, layout, stacking.CallerSavedUsed(catalog, used))
		if dAlloc {
			printAssignment(out, result)
		}
		printer.PrintFunction(fn)
	}
	return nil
}

// printFrame writes the frame summary of one function as listing comments
func printFrame(w io.Writer, layout *stacking.FrameLayout, clobbered []target.Reg) {
	fmt.Fprintf(w, "# frame %d (locals %d, padding %d)\n", layout.TotalSize, layout.LocalSize, layout.Padding)
	if len(layout.CalleeSaved) > 0 {
		fmt.Fprintf(w, "# callee-saved %s\n", joinRegs(layout.CalleeSaved))
	}
	if len(clobbered) > 0 {
		fmt.Fprintf(w, "# caller-saved %s\n", joinRegs(clobbered))
	}
}

// printAssignment writes the -dalloc table
func printAssignment(w io.Writer, result *regalloc.Result) {
	for _, id := range sortedKeys(result.Registers) {
		fmt.Fprintf(w, "# v%d -> %s\n", id, result.Registers[id])
	}
	for _, id := range sortedKeys(result.Slots) {
		fmt.Fprintf(w, "# s%d -> [sp+%d]\n", id, result.Slots[id])
	}
	for _, id := range result.Spilled {
		fmt.Fprintf(w, "# spilled v%d\n", id)
	}
}

func joinRegs(regs []target.Reg) string {
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = r.Name
	}
	return strings.Join(names, " ")
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
