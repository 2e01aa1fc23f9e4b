package confpush

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/mattn/go-shellwords"

	"github.com/example/kycstack/internal/errs"
)

// LocalFunction is the configuration entrypoint's function name.
const LocalFunction = "setconf"

// FunctionName is the deployed entrypoint for stackName.
func FunctionName(stackName string) string {
	return stackName + "-" + LocalFunction
}

// Response is the result of a synchronous remote invocation.
type Response struct {
	StatusCode    int
	Payload       []byte
	FunctionError string
}

// Invoker calls a remote function synchronously.
type Invoker interface {
	Invoke(ctx context.Context, function string, payload []byte) (Response, error)
}

// CheckResponse turns a failed invocation into a ProviderOperationFailed error carrying the
// remote diagnostic.
func CheckResponse(function string, resp Response) error {
	if resp.FunctionError == "" && resp.StatusCode < 300 {
		return nil
	}
	detail := strings.TrimSpace(string(resp.Payload))
	if detail == "" {
		detail = resp.FunctionError
	}
	if detail == "" {
		detail = "status " + strconv.Itoa(resp.StatusCode)
	}
	return errs.ProviderFailed("invoke "+function, detail, nil)
}

// NodeFlags are forwarded to the local node process.
type NodeFlags struct {
	Inspect  bool
	Debug    bool
	DebugBrk bool
}

func (f NodeFlags) args() []string {
	inspect := f.Inspect || f.Debug || f.DebugBrk
	var out []string
	if inspect {
		out = append(out, "--inspect")
	}
	if f.Debug {
		out = append(out, "--debug")
	}
	if f.DebugBrk {
		out = append(out, "--debug-brk")
	}
	return out
}

// Destination says where a payload goes.
type Destination struct {
	StackName string
	Local     bool
	// Dir is the local project directory; required when Local is set.
	Dir       string
	NodeFlags NodeFlags
	// NodeCommand and Serverless default to "node" and "serverless".
	NodeCommand string
	Serverless  string
}

// Command is a local process invocation.
type Command struct {
	Args  []string
	Env   []string
	Dir   string
	Stdin []byte
}

func (c Command) String() string {
	return strings.Join(append(append([]string{}, c.Env...), c.Args...), " ")
}

// Output is what a finished local process produced.
type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner executes local commands. err is reserved for failures to start the process.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// Deployer delivers payloads.
type Deployer struct {
	Invoker Invoker
	Runner  Runner
	// LookPath resolves the serverless executable; defaults to exec.LookPath.
	LookPath func(string) (string, error)
	Log      logr.Logger
}

// Deliver sends payload to dest and returns the entrypoint's output.
func (d *Deployer) Deliver(ctx context.Context, payload Payload, dest Destination) ([]byte, error) {
	if dest.Local {
		return d.deliverLocal(ctx, payload, dest)
	}
	if strings.TrimSpace(dest.StackName) == "" {
		return nil, errs.Configuration("stack name is required")
	}
	return d.deliverRemote(ctx, payload, dest)
}

func (d *Deployer) deliverRemote(ctx context.Context, payload Payload, dest Destination) ([]byte, error) {
	body, err := payload.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	fn := FunctionName(dest.StackName)
	d.Log.Info("pushing configuration", "function", fn, "bytes", len(body))
	resp, err := d.Invoker.Invoke(ctx, fn, body)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", fn, err)
	}
	if err := CheckResponse(fn, resp); err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

func (d *Deployer) deliverLocal(ctx context.Context, payload Payload, dest Destination) ([]byte, error) {
	if strings.TrimSpace(dest.Dir) == "" {
		return nil, errs.Configuration(`expected "dir", the path to your local serverless project`)
	}
	cmd, err := d.localCommand(dest)
	if err != nil {
		return nil, err
	}
	body, err := payload.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	cmd.Stdin = body
	d.Log.Info("pushing configuration locally", "dir", cmd.Dir, "command", cmd.String())
	out, err := d.Runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", cmd.Args[0], err)
	}
	if out.ExitCode != 0 {
		detail := strings.TrimSpace(string(out.Stderr))
		if detail == "" {
			detail = fmt.Sprintf("failed with code %d", out.ExitCode)
		}
		return nil, errs.ProviderFailed("local "+LocalFunction, detail, nil)
	}
	return out.Stdout, nil
}

func (d *Deployer) localCommand(dest Destination) (Command, error) {
	nodeCmd := strings.TrimSpace(dest.NodeCommand)
	if nodeCmd == "" {
		nodeCmd = "node"
	}
	node, err := shellwords.Parse(nodeCmd)
	if err != nil || len(node) == 0 {
		return Command{}, errs.Configuration("invalid node command %q", nodeCmd)
	}
	serverless := strings.TrimSpace(dest.Serverless)
	if serverless == "" {
		serverless = "serverless"
	}
	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	script, err := lookPath(serverless)
	if err != nil {
		return Command{}, errs.Configuration("serverless executable %q not found: %v", serverless, err)
	}
	args := append([]string{}, node...)
	args = append(args, dest.NodeFlags.args()...)
	args = append(args, script, "invoke", "local", "-f", LocalFunction)
	return Command{
		Args: args,
		Env:  []string{"IS_OFFLINE=1"},
		Dir:  dest.Dir,
	}, nil
}

// Pretty indents a JSON result for display; non-JSON output is returned unchanged.
func Pretty(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
