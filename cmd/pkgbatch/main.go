package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gopkg.in/ini.v1"

	"github.com/pkgbatchops/pkgbatch/pkgbatch/executor"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/hostinfo"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/plan"
)

var (
	logger       = logrus.New()
	programLevel = new(slog.LevelVar)
)

type flags struct {
	Backend            string
	Codename           string
	Concurrency        int
	Debug              bool
	Hostnames          hostnamesValue
	IniFilePath        string
	KeyPassPrompt      bool
	PasswordPrompt     bool
	PlanPath           string
	Print              bool
	Sudo               bool
	SudoPasswordPrompt bool
	Timeout            time.Duration
	Username           string
}

type hostnamesValue []string

func (h *hostnamesValue) String() string {
	return strings.Join(*h, ",")
}

func (h *hostnamesValue) Set(value string) error {
	*h = append(*h, value)
	return nil
}

func parseFlags() *flags {
	f := &flags{}
	flag.BoolVar(&f.Debug, "debug", false, "Enable debug log level")
	flag.BoolVar(&f.KeyPassPrompt, "keypass", false, "Prompt for the SSH key passphrase")
	flag.BoolVar(&f.PasswordPrompt, "password", false, "Prompt for the SSH password")
	flag.BoolVar(&f.Print, "print", false, "Render the compiled scripts to stdout instead of executing")
	flag.BoolVar(&f.Sudo, "sudo", false, "Run the compiled script under sudo")
	flag.BoolVar(&f.SudoPasswordPrompt, "sudo-password", false, "Prompt for the sudo password")
	flag.DurationVar(&f.Timeout, "timeout", 15*time.Minute, "Per-host execution timeout")
	flag.IntVar(&f.Concurrency, "concurrency", 10, "Maximum number of concurrent host connections")
	flag.StringVar(&f.Backend, "backend", "apt", "Package backend for hosts given with -hostname")
	flag.StringVar(&f.Codename, "codename", "", "Release codename for hosts given with -hostname")
	flag.StringVar(&f.IniFilePath, "ini", "", "Path to INI file with host configurations")
	flag.StringVar(&f.PlanPath, "plan", "", "Path to the YAML plan file")
	flag.StringVar(&f.Username, "username", "", "Username to use for SSH connection")
	flag.Var(&f.Hostnames, "hostname", "Hostname to compile for (repeatable)")

	flag.Parse()

	return f
}

func configureLogger(f *flags) {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel})
	slog.SetDefault(slog.New(h))

	if f.Debug {
		logger.SetLevel(logrus.DebugLevel)
		programLevel.Set(slog.LevelDebug)
	} else {
		logger.SetLevel(logrus.InfoLevel)
		programLevel.Set(slog.LevelInfo)
	}
}

// readHostsFromFile loads host facts from an INI file: one section per
// hostname with backend/family/codename keys.
func readHostsFromFile(filePath string) ([]hostinfo.Facts, error) {
	cfg, err := ini.Load(filePath)
	if err != nil {
		return nil, err
	}

	var hosts []hostinfo.Facts
	for _, section := range cfg.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}
		backend, err := hostinfo.ParseBackend(section.Key("backend").MustString("apt"))
		if err != nil {
			return nil, fmt.Errorf("host %s: %w", name, err)
		}
		facts := hostinfo.Facts{
			Hostname: name,
			Backend:  backend,
			Family:   hostinfo.Family(section.Key("family").MustString(string(hostinfo.DefaultFamily(backend)))),
			Codename: section.Key("codename").String(),
		}
		hosts = append(hosts, facts)
	}
	return hosts, nil
}

func collectHosts(f *flags) ([]hostinfo.Facts, error) {
	var hosts []hostinfo.Facts
	if f.IniFilePath != "" {
		fromFile, err := readHostsFromFile(f.IniFilePath)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, fromFile...)
	}
	names := f.Hostnames
	if len(hosts) == 0 && len(names) == 0 {
		names = append(names, "localhost")
	}
	for _, name := range names {
		backend, err := hostinfo.ParseBackend(f.Backend)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, hostinfo.Facts{
			Hostname: name,
			Backend:  backend,
			Family:   hostinfo.DefaultFamily(backend),
			Codename: f.Codename,
		})
	}
	return hosts, nil
}

func readPasswords(f *flags) executor.Credentials {
	creds := executor.Credentials{User: f.Username}
	creds.Password = promptSecret(f.PasswordPrompt, "Enter the password: ")
	creds.KeyPassphrase = promptSecret(f.KeyPassPrompt, "Enter the key passphrase: ")
	creds.SudoPassword = promptSecret(f.SudoPasswordPrompt, "Enter the sudo password: ")
	return creds
}

func promptSecret(enabled bool, prompt string) string {
	if !enabled {
		return ""
	}
	fmt.Print(prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		logger.Errorf("Failed to read secret: %v", err)
		return ""
	}
	return string(secret)
}

// runHosts applies one action per host under a concurrency cap and folds
// the failures into a single error.
func runHosts(hosts []hostinfo.Facts, concurrency int, action func(hostinfo.Facts) error) error {
	sem := make(chan struct{}, concurrency)
	errCh := make(chan error, len(hosts))
	var wg sync.WaitGroup

	for _, h := range hosts {
		wg.Add(1)
		go func(h hostinfo.Facts) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if err := action(h); err != nil {
				errCh <- fmt.Errorf("host %s: %w", h.Hostname, err)
			}
		}(h)
	}
	wg.Wait()
	close(errCh)

	var result *multierror.Error
	for err := range errCh {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func main() {
	f := parseFlags()
	configureLogger(f)

	if f.PlanPath == "" {
		logger.Fatal("a plan file is required (-plan)")
	}
	p, err := plan.Load(f.PlanPath)
	if err != nil {
		logger.Fatalf("Failed to load plan: %v", err)
	}

	hosts, err := collectHosts(f)
	if err != nil {
		logger.Fatalf("Failed to resolve hosts: %v", err)
	}

	compiler := plan.NewCompiler()

	if f.Print {
		for _, h := range hosts {
			script, err := compiler.Compile(h, p)
			if err != nil {
				logger.Fatalf("Failed to compile for host %s: %v", h.Hostname, err)
			}
			fmt.Printf("# ---- %s (%s) ----\n%s", h.Hostname, h.Backend, script.Render())
		}
		return
	}

	creds := readPasswords(f)
	err = runHosts(hosts, f.Concurrency, func(h hostinfo.Facts) error {
		script, err := compiler.Compile(h, p)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), f.Timeout)
		defer cancel()

		runner := executor.NewScriptRunner(h.Hostname, creds, f.Sudo)
		result, err := runner.Run(ctx, script.Render())
		if result.STDOUT != "" {
			fmt.Printf("Output from host %s:\n%s\n", h.Hostname, result.STDOUT)
		}
		if err != nil {
			return err
		}
		logger.Debugf("Host %s finished in %s", h.Hostname, result.Duration)
		return nil
	})
	if err != nil {
		logger.Fatalf("Batch failed: %v", err)
	}
}
