package execution

import (
	"github.com/arthur-debert/rigup/pkg/config"
	"github.com/arthur-debert/rigup/pkg/template"
	"github.com/arthur-debert/rigup/pkg/types"
)

// call is the types.Call implementation handed to action bodies: the fixed
// operation vocabulary delegating to the context, plus the positional
// arguments the trigger caller forwarded.
type call struct {
	ctx  *Context
	args []interface{}
}

func (c *Context) newCall(args []interface{}) types.Call {
	return &call{ctx: c, args: args}
}

func (cl *call) Node() types.Node      { return cl.ctx.node }
func (cl *call) Config() config.Config { return cl.ctx.cfg }
func (cl *call) Log() types.LogSink    { return cl.ctx.sink }
func (cl *call) Args() []interface{}   { return cl.args }

func (cl *call) Arg(i int) (interface{}, bool) {
	if i < 0 || i >= len(cl.args) {
		return nil, false
	}
	return cl.args[i], true
}

func (cl *call) Run(cmd string, opts types.RunOpts) (string, error) {
	return cl.ctx.node.Run(cmd, opts)
}

func (cl *call) Sudo(cmd string, opts types.RunOpts) (string, error) {
	return cl.ctx.node.Sudo(cmd, opts)
}

func (cl *call) RunLocal(cmd string) {
	cl.ctx.RunLocal(cmd)
}

func (cl *call) Env(name string) (string, error) {
	return cl.ctx.node.Env(name)
}

func (cl *call) InDir(path string, body func() (interface{}, error)) (interface{}, error) {
	return cl.ctx.InDir(path, body)
}

func (cl *call) As(user string, body types.Body) (interface{}, error) {
	return cl.ctx.As(user, body)
}

func (cl *call) Upload(from, to string) error {
	return cl.ctx.node.Upload(from, to)
}

func (cl *call) Download(from, to string) error {
	return cl.ctx.node.Download(from, to)
}

func (cl *call) Mkdir(path string) error {
	return cl.ctx.node.Mkdir(path)
}

func (cl *call) Remove(path string) error {
	return cl.ctx.node.Delete(path)
}

func (cl *call) Copy(from, to string) error {
	return cl.ctx.node.Copy(from, to)
}

func (cl *call) Move(from, to string) error {
	return cl.ctx.node.Move(from, to)
}

func (cl *call) Local(path string) types.FileHandle {
	return &localFile{path: path}
}

func (cl *call) Remote(path string) types.FileHandle {
	return &remoteFile{path: path, node: cl.ctx.node}
}

func (cl *call) Template(path string) types.Renderer {
	return template.New(path, cl.ctx.cfg)
}

func (cl *call) Trigger(ref string, args ...interface{}) (interface{}, error) {
	return cl.ctx.Trigger(ref, args...)
}

func (cl *call) BinaryExists(name string) (bool, error) {
	return cl.ctx.node.BinaryExists(name)
}

func (cl *call) Field(name string) (config.Value, error) {
	return cl.ctx.Field(name)
}
