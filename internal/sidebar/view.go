package sidebar

import (
	"fmt"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/tree"
)

// View is a point-in-time snapshot for renderers.
type View struct {
	Mode         Mode
	CurrentFile  string
	Rows         []tree.Row
	Creation     *CreationDraft
	RenamingPath string
	RenameDraft  string
	RenameErr    string
	Usage        *int64
	Err          string
	Loading      bool
}

// View builds a snapshot of the sidebar.
func (c *Controller) View() View {
	root := c.store.Tree()
	current := c.store.CurrentFile()
	loading := c.store.Loading()
	var errMsg string
	if err := c.store.Err(); err != nil {
		errMsg = apperr.Message(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		Mode:         c.mode,
		CurrentFile:  current,
		RenamingPath: c.renamingPath,
		RenameDraft:  c.renameDraft,
		RenameErr:    c.renameErr,
		Err:          errMsg,
		Loading:      loading,
	}
	if c.creation != nil {
		d := *c.creation
		v.Creation = &d
	}
	if c.usage != nil {
		n := *c.usage
		v.Usage = &n
	}
	v.Rows = tree.Rows(root, func(p string) bool { return c.expanded[p] })
	return v
}

// FormatBytes renders a storage figure for the footer, e.g. "1.5 MB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
