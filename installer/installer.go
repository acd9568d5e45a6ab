package installer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ruteri/toolstate-pipeline/interfaces"
)

// cliTool is the toolchain CLI binary the installer bootstraps; the rest of
// the toolchain is installed through it.
const cliTool = "oasis"

// installedDepsFile records what the installer put on the machine, one entry
// per line, so an uninstaller can undo it.
const installedDepsFile = "installed_dependencies"

// rustVersion is the pinned Rust toolchain the published tools are built
// against; the library-path exports reference its sysroot.
const rustVersion = "nightly-2019-08-01"

const rustSysrootPrefix = ".rustup/toolchains/" + rustVersion + "-x86_64-"

const defaultNodeIndexURL = "https://nodejs.org/dist/latest/"

// requiredUtils must be present on PATH before installing. The Rust and Node
// bootstrap steps shell out to curl and rsync.
var requiredUtils = []string{"curl", "git", "rsync"}

var cliKeyRe = regexp.MustCompile(`^` + cliTool + `-[0-9a-f]{7,}$`)

var nodeVersionRe = regexp.MustCompile(`node-(v(\d+)\.\d+\.\d+)\.tar\.gz`)

// Options configures an installer run.
type Options struct {
	// ToolsURL is the base URL the published artifacts are served from.
	ToolsURL string

	// Toolchain is the toolchain version to select after install.
	Toolchain string

	// Prefix is the installation prefix; binaries land in <Prefix>/bin.
	Prefix string

	// ConfigDir holds the installer's bookkeeping files.
	ConfigDir string

	// Force replaces an existing install.
	Force bool

	// Speedrun accepts default options for all installed tools.
	Speedrun bool

	// NoModifyPath leaves shell profiles untouched; the caller prints the
	// required exports instead.
	NoModifyPath bool

	// NoRust skips the Rust bootstrap even when no install is detected.
	NoRust bool

	// NoNode skips the Node bootstrap even when no install is detected.
	NoNode bool
}

// shellRunFunc runs a shell pipeline. Production installs go through sh -c;
// tests substitute a recorder.
type shellRunFunc func(ctx context.Context, script string) error

func execShell(ctx context.Context, script string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", script)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Installer downloads the newest passing toolchain build and installs it.
type Installer struct {
	opts      Options
	platform  interfaces.Platform
	client    *http.Client
	runShell  shellRunFunc
	nodeIndex string
	log       *slog.Logger
}

// New creates an installer after gating on the running platform.
func New(opts Options, log *slog.Logger) (*Installer, error) {
	platform, err := interfaces.CurrentPlatform()
	if err != nil {
		return nil, err
	}

	if opts.Toolchain == "" {
		opts.Toolchain = "latest"
	}

	return &Installer{
		opts:      opts,
		platform:  platform,
		client:    &http.Client{Timeout: 5 * time.Minute},
		runShell:  execShell,
		nodeIndex: defaultNodeIndexURL,
		log:       log,
	}, nil
}

// CheckPrerequisites verifies the required CLI utilities are on PATH.
func CheckPrerequisites() error {
	var missing []string
	for _, util := range requiredUtils {
		if _, err := exec.LookPath(util); err != nil {
			missing = append(missing, util)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing CLI utilities: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Install downloads the CLI from the newest passing build for this platform,
// installs it under the prefix, and selects the requested toolchain.
func (ins *Installer) Install(ctx context.Context) error {
	binDir := filepath.Join(ins.opts.Prefix, "bin")
	if err := ensureDir(binDir); err != nil {
		return err
	}
	if err := ensureDir(ins.opts.ConfigDir); err != nil {
		return err
	}

	if !ins.opts.NoRust && (ins.opts.Force || !hasRustInstall()) {
		ins.log.Info("Installing Rust", slog.String("toolchain", rustVersion))
		if err := ins.installRust(ctx); err != nil {
			return fmt.Errorf("installing rust: %w", err)
		}
		if err := ins.recordInstall("rust"); err != nil {
			return err
		}
	}

	if !ins.opts.NoNode && (ins.opts.Force || !hasNodeInstall(binDir)) {
		nodeVer, err := ins.installNode(ctx)
		if err != nil {
			return fmt.Errorf("installing node: %w", err)
		}
		if err := ins.recordInstall("node-" + nodeVer); err != nil {
			return err
		}
	}

	manifest, err := ins.fetchText(ctx, ins.opts.ToolsURL+"/"+interfaces.ManifestObject)
	if err != nil {
		return fmt.Errorf("fetching build manifest: %w", err)
	}

	cliKey, err := LatestCLIKey(manifest, ins.platform)
	if err != nil {
		return err
	}

	cliPath := filepath.Join(binDir, cliTool)
	if _, err := os.Stat(cliPath); err == nil && !ins.opts.Force {
		return fmt.Errorf("%s already exists, rerun with force to replace it", cliPath)
	}

	downloadURL := fmt.Sprintf("%s/%s/current/%s", ins.opts.ToolsURL, ins.platform, cliKey)
	ins.log.Info("Downloading CLI",
		slog.String("url", downloadURL),
		slog.String("dest", cliPath))

	if err := ins.download(ctx, downloadURL, cliPath); err != nil {
		return err
	}

	if ins.opts.Speedrun {
		if err := ins.speedrunConfigure(ctx, cliPath); err != nil {
			ins.log.Warn("Unable to set default CLI configuration", "err", err)
		}
	}

	if err := ins.setToolchain(ctx, cliPath); err != nil {
		return err
	}

	return ins.recordInstall(cliTool)
}

// hasRustInstall reports whether a rustup-managed Rust install is already
// present.
func hasRustInstall() bool {
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(home, ".cargo"))
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = exec.LookPath("rustup")
	return err == nil
}

// hasNodeInstall checks for npm rather than node: node is nodejs on Ubuntu,
// and npm may already sit in the prefix without being on PATH.
func hasNodeInstall(binDir string) bool {
	if _, err := exec.LookPath("npm"); err == nil {
		return true
	}
	_, err := os.Stat(filepath.Join(binDir, "npm"))
	return err == nil
}

// installRust bootstraps Rust through rustup with the pinned toolchain.
func (ins *Installer) installRust(ctx context.Context) error {
	rustupArgs := "-y --default-toolchain " + rustVersion
	if ins.opts.NoModifyPath {
		rustupArgs += " --no-modify-path"
	}
	// curl invocation taken from https://rustup.rs
	return ins.runShell(ctx,
		"curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh -s -- "+rustupArgs)
}

// installNode installs the latest Node release into the prefix and returns
// the installed version.
func (ins *Installer) installNode(ctx context.Context) (string, error) {
	index, err := ins.fetchText(ctx, ins.nodeIndex)
	if err != nil {
		return "", fmt.Errorf("resolving latest node release: %w", err)
	}
	match := nodeVersionRe.FindStringSubmatch(index)
	if match == nil {
		return "", fmt.Errorf("no node release found at %s", ins.nodeIndex)
	}
	nodeVer, nodeMajor := match[1], match[2]

	ins.log.Info("Installing Node", slog.String("version", nodeVer))

	if ins.platform == interfaces.PlatformDarwin {
		if _, err := exec.LookPath("brew"); err == nil {
			if ins.opts.Force {
				_ = ins.runShell(ctx, "brew uninstall node >/dev/null 2>&1 || true")
			}
			brewArgs := ""
			if ins.opts.Force {
				brewArgs = "--force "
			}
			return nodeVer, ins.runShell(ctx, "brew install "+brewArgs+"node")
		}
		if _, err := exec.LookPath("port"); err == nil {
			return nodeVer, ins.runShell(ctx, "port install node"+nodeMajor)
		}
	}

	distURL := fmt.Sprintf("https://nodejs.org/dist/%[1]s/node-%[1]s-%s-x64.tar.gz", nodeVer, ins.platform)
	tmpDir := filepath.Join(os.TempDir(), "node-"+nodeVer)
	if err := ensureDir(tmpDir); err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	extract := fmt.Sprintf(
		`curl -L "%s" | tar xz -C %s --strip-components=1 --exclude '*.md' --exclude LICENSE`,
		distURL, tmpDir)
	if err := ins.runShell(ctx, extract); err != nil {
		return "", err
	}
	if err := ins.runShell(ctx, fmt.Sprintf("rsync -au %s/ %s/", tmpDir, ins.opts.Prefix)); err != nil {
		return "", err
	}
	return nodeVer, nil
}

// LatestCLIKey finds the CLI artifact name in the newest manifest line for
// the platform.
func LatestCLIKey(manifest string, platform interfaces.Platform) (string, error) {
	lines := strings.Split(strings.TrimSpace(manifest), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		fields := strings.Fields(lines[i])
		if len(fields) < 3 || fields[1] != string(platform) {
			continue
		}
		for _, field := range fields[2:] {
			if cliKeyRe.MatchString(field) {
				return field, nil
			}
		}
	}
	return "", fmt.Errorf("no passing %s build found in manifest", platform)
}

func (ins *Installer) fetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := ins.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (ins *Installer) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := ins.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0755)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}

// speedrunConfigure runs the CLI once with stdin closed so its first-run
// prompt falls back to default answers.
func (ins *Installer) speedrunConfigure(ctx context.Context, cliPath string) error {
	cmd := exec.CommandContext(ctx, cliPath)
	cmd.Stdin = strings.NewReader("")
	return cmd.Run()
}

func (ins *Installer) setToolchain(ctx context.Context, cliPath string) error {
	cmd := exec.CommandContext(ctx, cliPath, "set-toolchain", ins.opts.Toolchain)
	cmd.Env = append(os.Environ(), "OASIS_SKIP_GENERATE_CONFIG=1")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("set-toolchain %s: %w: %s", ins.opts.Toolchain, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// recordInstall appends dep to the installed-dependencies record unless it
// is already listed.
func (ins *Installer) recordInstall(dep string) error {
	recordPath := filepath.Join(ins.opts.ConfigDir, installedDepsFile)

	existing, err := os.ReadFile(recordPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if line == dep {
			return nil
		}
	}

	f, err := os.OpenFile(recordPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(dep + "\n")
	return err
}

func ensureDir(path string) error {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return fmt.Errorf("%s is expected to be a directory", path)
	}
	return os.MkdirAll(path, 0755)
}
