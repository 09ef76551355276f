package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-engine/internal/auth"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if errors.Is(err, errUsage) {
		usage(os.Stderr)
		os.Exit(2)
	}
	dieIf(err)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	switch args[0] {
	case "keygen":
		return cmdKeygen(args[1:], stdout, stderr)
	case "tune":
		return cmdTune(ctx, args[1:], stdout, stderr)
	case "hash":
		return cmdHash(args[1:], stdin, stdout, stderr)
	default:
		return errUsage
	}
}

func cmdKeygen(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	length := fs.Int("bytes", auth.DefaultSecretKeyBytes, "number of random bytes")
	encoding := fs.String("encoding", string(auth.KeyEncodingHex), "hex or base64")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := auth.GenerateSecretKey(*length, auth.KeyEncoding(*encoding))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "AUTH_JWT_SECRET=%s\n", key)
	return err
}

func cmdTune(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	defaults := auth.DefaultCostParams()

	fs := flag.NewFlagSet("tune", flag.ContinueOnError)
	fs.SetOutput(stderr)
	target := fs.Duration("target", 500*time.Millisecond, "desired duration per operation")
	goal := fs.String("goal", auth.GoalHashVerify.String(), "hash or hash+verify")
	samples := fs.Int("samples", 3, "measurements averaged per probe (1-3)")
	parallelism := fs.Uint("parallelism", uint(defaults.Parallelism), "argon2 lanes")
	maxMemory := fs.Uint("max-memory-kb", uint(auth.DefaultMaxMemoryKB), "memory ceiling in KB")
	verbose := fs.Bool("v", false, "log every probe to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsedGoal, err := parseGoal(*goal)
	if err != nil {
		return err
	}
	if *parallelism < 1 || *parallelism > 255 {
		return fmt.Errorf("parallelism must be between 1 and 255")
	}

	logger := zap.NewNop()
	if *verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
	}

	ceiling, err := flagUint32("max-memory-kb", *maxMemory)
	if err != nil {
		return err
	}

	base := defaults
	base.Parallelism = uint8(*parallelism)
	tuner, err := auth.NewTuner(auth.TuneOptions{
		Target:      *target,
		Goal:        parsedGoal,
		Samples:     *samples,
		Base:        base,
		MaxMemoryKB: ceiling,
	}, logger)
	if err != nil {
		return err
	}

	result, err := tuner.Tune(ctx)
	if err != nil {
		return err
	}
	return writeTuneResult(stdout, result, *target)
}

func writeTuneResult(w io.Writer, result auth.TuneResult, target time.Duration) error {
	p := result.Params
	_, err := fmt.Fprintf(w, "# measured %s against a %s target (%d probes)\n"+
		"AUTH_ARGON2_MEMORY_KB=%d\n"+
		"AUTH_ARGON2_ITERATIONS=%d\n"+
		"AUTH_ARGON2_PARALLELISM=%d\n"+
		"AUTH_ARGON2_OUTPUT_LENGTH=%d\n",
		result.Measured.Round(time.Millisecond), target, result.Probes,
		p.MemoryKB, p.Iterations, p.Parallelism, p.OutputLength)
	return err
}

func parseGoal(raw string) (auth.TuneGoal, error) {
	switch raw {
	case auth.GoalHash.String():
		return auth.GoalHash, nil
	case auth.GoalHashVerify.String():
		return auth.GoalHashVerify, nil
	default:
		return 0, fmt.Errorf("unknown goal %q", raw)
	}
}

func cmdHash(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	defaults := auth.DefaultCostParams()

	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	memory := fs.Uint("memory-kb", uint(defaults.MemoryKB), "argon2 memory in KB")
	iterations := fs.Uint("iterations", uint(defaults.Iterations), "argon2 passes")
	parallelism := fs.Uint("parallelism", uint(defaults.Parallelism), "argon2 lanes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *parallelism > 255 {
		return fmt.Errorf("parallelism must be between 1 and 255")
	}
	memoryKB, err := flagUint32("memory-kb", *memory)
	if err != nil {
		return err
	}
	passes, err := flagUint32("iterations", *iterations)
	if err != nil {
		return err
	}

	// The password is read from stdin so it does not end up in shell history.
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password on stdin")
	}

	params := defaults
	params.MemoryKB = memoryKB
	params.Iterations = passes
	params.Parallelism = uint8(*parallelism)

	hasher, err := auth.NewHasher(params, 0)
	if err != nil {
		return err
	}
	encoded, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, encoded)
	return err
}

func flagUint32(name string, v uint) (uint32, error) {
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("-%s must be at most %d", name, uint32(math.MaxUint32))
	}
	return uint32(v), nil
}

func usage(w io.Writer) {
	fmt.Fprint(w, `authctl commands:

  keygen  [--bytes 64] [--encoding hex|base64]
  tune    [--target 500ms] [--goal hash|hash+verify] [--samples 3] [--parallelism 4] [--max-memory-kb N] [-v]
  hash    [--memory-kb N] [--iterations N] [--parallelism N] < password
`)
}

func dieIf(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
