package shell

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pocketdb/pocketdb/lib/store"
	"github.com/pocketdb/pocketdb/lib/store/pstore"
	"github.com/pocketdb/pocketdb/lib/store/value"
)

const banner = `PocketDB interactive shell
Type 'help' for available commands, 'exit' to quit.
`

const helpText = `Available commands:
  set <key> <value> [ttl]   store a value, optionally expiring after ttl seconds
  get <key> [default]       read a value; with a default, absence is not an error
  del <key>                 remove a key
  exists <key>              check whether a key is present
  keys [pattern]            list keys matching a glob pattern (default "*")
  values                    list all values
  items                     list all key-value pairs
  size                      number of live entries
  stats                     usage statistics
  save [file]               snapshot the store to disk
  load [file]               replace the store state from a snapshot
  clear                     remove all entries (asks for confirmation)
  metrics                   dump operational metrics (prometheus text)
  history                   show the commands typed in this session
  help                      show this help
  exit                      quit the shell

Values are parsed as JSON first (42, true, null, "quoted", {"a":1}, [1,2]);
anything that is not valid JSON is stored as a plain string.`

// Shell is the interactive read-eval-print loop over a store.
type Shell struct {
	store   store.IStore
	name    string
	in      *bufio.Reader
	out     io.Writer
	history []string
}

// New creates a shell bound to a store. The name is only used for the
// prompt and for resolving the default snapshot filename in messages.
func New(s store.IStore, name string, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		store: s,
		name:  name,
		in:    bufio.NewReader(in),
		out:   out,
	}
}

// Run starts the shell loop. It returns on EOF or an exit command; command
// errors are printed and never terminate the loop.
func (sh *Shell) Run() error {
	fmt.Fprint(sh.out, banner)

	for {
		// Print prompt
		fmt.Fprintf(sh.out, "pocketdb (%s)> ", sh.name)

		// Read line
		line, err := sh.in.ReadString('\n')
		if err == io.EOF {
			fmt.Fprintln(sh.out)
			return nil
		}
		if err != nil {
			return err
		}

		// Trim and skip empty lines
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		sh.history = append(sh.history, line)

		if line == "exit" || line == "quit" {
			return nil
		}

		if err := sh.execute(line); err != nil {
			fmt.Fprintf(sh.out, "Error: %v\n", err)
		}
	}
}

// execute parses one input line and dispatches it.
func (sh *Shell) execute(line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "set":
		return sh.cmdSet(args)
	case "get":
		return sh.cmdGet(args)
	case "del", "delete":
		return sh.cmdDel(args)
	case "exists":
		return sh.cmdExists(args)
	case "keys":
		return sh.cmdKeys(args)
	case "values":
		return sh.cmdValues(args)
	case "items":
		return sh.cmdItems(args)
	case "size":
		fmt.Fprintln(sh.out, sh.store.Size())
		return nil
	case "stats":
		return sh.cmdStats(args)
	case "save":
		return sh.cmdSave(args)
	case "load":
		return sh.cmdLoad(args)
	case "clear":
		return sh.cmdClear(args)
	case "metrics":
		sh.store.WriteMetrics(sh.out)
		return nil
	case "history":
		for i, entry := range sh.history {
			fmt.Fprintf(sh.out, "%4d  %s\n", i+1, entry)
		}
		return nil
	case "help":
		fmt.Fprintln(sh.out, helpText)
		return nil
	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
}

// --------------------------------------------------------------------------
// Command implementations
// --------------------------------------------------------------------------

func (sh *Shell) cmdSet(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: set <key> <value> [ttl]")
	}

	key := args[0]
	val := value.Parse(args[1])

	if len(args) == 3 {
		ttl, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("ttl must be a number of seconds: %w", err)
		}
		if err := sh.store.SetTTL(key, val, ttl); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "set %q => %s (ttl %d seconds)\n", key, val, ttl)
		return nil
	}

	if err := sh.store.Set(key, val); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "set %q => %s\n", key, val)
	return nil
}

func (sh *Shell) cmdGet(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: get <key> [default]")
	}

	var (
		val value.Value
		err error
	)
	if len(args) == 2 {
		val, err = sh.store.GetDefault(args[0], value.Parse(args[1]))
	} else {
		val, err = sh.store.Get(args[0])
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(sh.out, val)
	return nil
}

func (sh *Shell) cmdDel(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: del <key>")
	}

	removed, err := sh.store.Delete(args[0])
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintf(sh.out, "deleted %q\n", args[0])
	} else {
		fmt.Fprintf(sh.out, "key %q not found\n", args[0])
	}
	return nil
}

func (sh *Shell) cmdExists(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: exists <key>")
	}

	found, err := sh.store.Exists(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, found)
	return nil
}

func (sh *Shell) cmdKeys(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: keys [pattern]")
	}

	pattern := "*"
	if len(args) == 1 {
		pattern = args[0]
	}

	keys, err := sh.store.Keys(pattern)
	if err != nil {
		return err
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintln(sh.out, key)
	}
	fmt.Fprintf(sh.out, "(%d keys)\n", len(keys))
	return nil
}

func (sh *Shell) cmdValues(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: values")
	}

	vals := sh.store.Values()
	for _, val := range vals {
		fmt.Fprintln(sh.out, val)
	}
	fmt.Fprintf(sh.out, "(%d values)\n", len(vals))
	return nil
}

func (sh *Shell) cmdItems(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: items")
	}

	items := sh.store.Items()
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	for _, item := range items {
		fmt.Fprintf(sh.out, "%s => %s\n", item.Key, item.Value)
	}
	fmt.Fprintf(sh.out, "(%d items)\n", len(items))
	return nil
}

func (sh *Shell) cmdStats(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: stats")
	}

	stats := sh.store.Stats()
	addField := func(name string, val interface{}) {
		fmt.Fprintf(sh.out, "  %-10s: %v\n", name, val)
	}

	addField("size", stats.Size)
	addField("ttl_keys", stats.TTLKeys)
	addField("gets", stats.Gets)
	addField("sets", stats.Sets)
	addField("deletes", stats.Deletes)
	addField("hits", stats.Hits)
	addField("misses", stats.Misses)
	addField("expired", stats.Expired)
	addField("hit_rate", fmt.Sprintf("%.3f", stats.HitRate))
	return nil
}

func (sh *Shell) cmdSave(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: save [file]")
	}

	filename := ""
	if len(args) == 1 {
		filename = args[0]
	}

	if err := sh.store.Save(filename); err != nil {
		return err
	}
	if filename == "" {
		filename = pstore.DefaultFilename(sh.name)
	}
	fmt.Fprintf(sh.out, "saved to %q\n", filename)
	return nil
}

func (sh *Shell) cmdLoad(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: load [file]")
	}

	filename := ""
	if len(args) == 1 {
		filename = args[0]
	}

	if err := sh.store.Load(filename); err != nil {
		return err
	}
	if filename == "" {
		filename = pstore.DefaultFilename(sh.name)
	}
	fmt.Fprintf(sh.out, "loaded from %q\n", filename)
	return nil
}

func (sh *Shell) cmdClear(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: clear")
	}

	fmt.Fprintf(sh.out, "This will remove all %d entries. Continue? [y/N] ", sh.store.Size())

	line, err := sh.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	if strings.ToLower(strings.TrimSpace(line)) != "y" {
		fmt.Fprintln(sh.out, "aborted")
		return nil
	}

	sh.store.Reset()
	fmt.Fprintln(sh.out, "store cleared")
	return nil
}
