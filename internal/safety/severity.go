// Package safety validates argument shapes for the curated allow-list of
// read-oriented utilities and classifies every other shell command by
// severity (spec.md §6). Evaluate checks the allow-list first; the
// severity table applies only to commands that are not allow-listed.
//
// Grounded on original_source/vtcode-core/src/command_safety/windows_cmdlet_db.rs
// for the severity/category taxonomy shape (ported from a Windows-cmdlet
// focus to POSIX shell commands, since this module targets the shell tool
// rather than a PowerShell host) and
// original_source/vtcode-core/src/execpolicy/mod.rs for the allow-list
// grammar (ported near-verbatim in grammar.go).
package safety

// Severity ranks how dangerous a command name is understood to be,
// independent of the arguments it's invoked with.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Category groups commands by the kind of risk they pose (spec.md §6).
type Category string

const (
	CategoryCodeExecution    Category = "code_execution"
	CategoryFileOperations   Category = "file_operations"
	CategoryProcessManagement Category = "process_management"
	CategoryNetworkOperations Category = "network_operations"
	CategoryRegistryAccess   Category = "registry_access"
	CategorySystemManagement Category = "system_management"
	CategoryCredential       Category = "credential"
	CategoryEncryption       Category = "encryption"
	CategoryReflection       Category = "reflection"
	CategoryCOM              Category = "com"
)

// CommandInfo is one entry in the name-severity database.
type CommandInfo struct {
	Name        string
	Severity    Severity
	Category    Category
	Description string
}

// database is the static name-severity mapping (spec.md §6). It is not
// exhaustive of every dangerous command that exists; it covers the
// commands the policy expects to see attempted against a coding-agent
// workspace. Lookup reports commands absent from the database as not
// found, and Evaluate then treats them as
// SeverityMedium/CategoryProcessManagement unless they appear in the
// allow-list (see grammar.go), in which case the allow-list grammar
// governs instead of this table.
var database = map[string]CommandInfo{
	"rm":         {Name: "rm", Severity: SeverityCritical, Category: CategoryFileOperations, Description: "deletes files or directories, optionally recursively"},
	"rmdir":      {Name: "rmdir", Severity: SeverityHigh, Category: CategoryFileOperations, Description: "removes empty directories"},
	"dd":         {Name: "dd", Severity: SeverityCritical, Category: CategoryFileOperations, Description: "low-level block device copy, can overwrite arbitrary devices"},
	"mkfs":       {Name: "mkfs", Severity: SeverityCritical, Category: CategoryFileOperations, Description: "formats a filesystem, destroys existing data"},
	"shred":      {Name: "shred", Severity: SeverityCritical, Category: CategoryFileOperations, Description: "overwrites and deletes files irrecoverably"},
	"chmod":      {Name: "chmod", Severity: SeverityHigh, Category: CategoryFileOperations, Description: "changes file permission bits"},
	"chown":      {Name: "chown", Severity: SeverityHigh, Category: CategoryFileOperations, Description: "changes file ownership"},
	"mv":         {Name: "mv", Severity: SeverityMedium, Category: CategoryFileOperations, Description: "moves or renames files, can overwrite destinations"},
	"sudo":       {Name: "sudo", Severity: SeverityCritical, Category: CategoryCredential, Description: "executes a command as another user, typically root"},
	"su":         {Name: "su", Severity: SeverityCritical, Category: CategoryCredential, Description: "switches user identity"},
	"passwd":     {Name: "passwd", Severity: SeverityHigh, Category: CategoryCredential, Description: "changes an account password"},
	"useradd":    {Name: "useradd", Severity: SeverityHigh, Category: CategoryCredential, Description: "creates a system user account"},
	"visudo":     {Name: "visudo", Severity: SeverityCritical, Category: CategoryCredential, Description: "edits the sudoers policy file"},
	"ssh-keygen": {Name: "ssh-keygen", Severity: SeverityMedium, Category: CategoryCredential, Description: "generates or manipulates SSH key material"},
	"curl":       {Name: "curl", Severity: SeverityHigh, Category: CategoryNetworkOperations, Description: "issues arbitrary HTTP(S) requests, can exfiltrate data"},
	"wget":       {Name: "wget", Severity: SeverityHigh, Category: CategoryNetworkOperations, Description: "downloads arbitrary remote content"},
	"nc":         {Name: "nc", Severity: SeverityCritical, Category: CategoryNetworkOperations, Description: "opens arbitrary network connections, can serve as a reverse shell"},
	"ncat":       {Name: "ncat", Severity: SeverityCritical, Category: CategoryNetworkOperations, Description: "opens arbitrary network connections"},
	"ssh":        {Name: "ssh", Severity: SeverityHigh, Category: CategoryNetworkOperations, Description: "opens a remote shell or tunnel"},
	"iptables":   {Name: "iptables", Severity: SeverityCritical, Category: CategoryNetworkOperations, Description: "modifies firewall rules"},
	"kill":       {Name: "kill", Severity: SeverityMedium, Category: CategoryProcessManagement, Description: "sends a signal to a process"},
	"pkill":      {Name: "pkill", Severity: SeverityMedium, Category: CategoryProcessManagement, Description: "sends a signal to processes matching a pattern"},
	"killall":    {Name: "killall", Severity: SeverityMedium, Category: CategoryProcessManagement, Description: "sends a signal to processes matching a name"},
	"systemctl":  {Name: "systemctl", Severity: SeverityHigh, Category: CategorySystemManagement, Description: "controls system services"},
	"shutdown":   {Name: "shutdown", Severity: SeverityCritical, Category: CategorySystemManagement, Description: "halts or reboots the host"},
	"reboot":     {Name: "reboot", Severity: SeverityCritical, Category: CategorySystemManagement, Description: "reboots the host"},
	"crontab":    {Name: "crontab", Severity: SeverityHigh, Category: CategorySystemManagement, Description: "installs recurring scheduled commands"},
	"eval":       {Name: "eval", Severity: SeverityCritical, Category: CategoryCodeExecution, Description: "executes arbitrary shell text constructed at runtime"},
	"exec":       {Name: "exec", Severity: SeverityHigh, Category: CategoryCodeExecution, Description: "replaces the current shell process image"},
	"python":     {Name: "python", Severity: SeverityHigh, Category: CategoryCodeExecution, Description: "runs arbitrary interpreted code"},
	"python3":    {Name: "python3", Severity: SeverityHigh, Category: CategoryCodeExecution, Description: "runs arbitrary interpreted code"},
	"node":       {Name: "node", Severity: SeverityHigh, Category: CategoryCodeExecution, Description: "runs arbitrary interpreted code"},
	"perl":       {Name: "perl", Severity: SeverityHigh, Category: CategoryCodeExecution, Description: "runs arbitrary interpreted code"},
	"base64":     {Name: "base64", Severity: SeverityLow, Category: CategoryEncryption, Description: "encodes or decodes data, often used to obfuscate payloads"},
	"openssl":    {Name: "openssl", Severity: SeverityMedium, Category: CategoryEncryption, Description: "cryptographic toolkit, can generate or decrypt key material"},
	"gpg":        {Name: "gpg", Severity: SeverityMedium, Category: CategoryEncryption, Description: "encrypts, decrypts, or signs data"},
}

// Lookup returns the database entry for a command name, if present.
func Lookup(name string) (CommandInfo, bool) {
	info, ok := database[name]
	return info, ok
}

// AtOrAbove reports whether a severity meets or exceeds a threshold.
func (s Severity) AtOrAbove(threshold Severity) bool {
	return s >= threshold
}

// DefaultThreshold is the global auto-block threshold: only SeverityLow
// is unrestricted by default (spec.md §6).
const DefaultThreshold = SeverityMedium
