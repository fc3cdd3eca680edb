package errors

import "fmt"

// Validation Errors

func ValidationFailed(field, value, reason string) *KitError {
	return NewWithDetails(ErrValidationFailed, "Validation failed",
		fmt.Sprintf("Field: %s, Value: %s, Reason: %s", field, value, reason))
}

func InvalidName(name, reason string) *KitError {
	return NewWithDetails(ErrInvalidName, "Invalid instance name",
		fmt.Sprintf("Name: %s, Reason: %s", name, reason))
}

func InvalidPath(path, reason string) *KitError {
	return NewWithDetails(ErrInvalidPath, "Invalid path",
		fmt.Sprintf("Path: %s, Reason: %s", path, reason))
}

func InvalidPort(port interface{}, reason string) *KitError {
	return NewWithDetails(ErrInvalidPort, "Invalid port",
		fmt.Sprintf("Port: %v, Reason: %s", port, reason))
}

func InvalidPreset(preset string) *KitError {
	return NewWithDetails(ErrInvalidPreset, "Unknown world preset",
		fmt.Sprintf("Preset: %s", preset))
}

func MissingToken(name string) *KitError {
	return NewWithDetails(ErrMissingToken, "Cluster token is not set",
		fmt.Sprintf("Instance: %s", name))
}

// Conflict Errors

func DuplicateName(name string) *KitError {
	return NewWithDetails(ErrDuplicateName, "Instance already exists",
		fmt.Sprintf("Instance: %s", name))
}

func DuplicateMod(name, modID string) *KitError {
	return NewWithDetails(ErrDuplicateMod, "Mod already configured",
		fmt.Sprintf("Instance: %s, Mod: %s", name, modID))
}

func UnknownMod(name, modID string) *KitError {
	return NewWithDetails(ErrUnknownMod, "Mod not configured",
		fmt.Sprintf("Instance: %s, Mod: %s", name, modID))
}

func InstanceBusy(name, status string) *KitError {
	return NewWithDetails(ErrInstanceBusy, "Instance is not stopped",
		fmt.Sprintf("Instance: %s, Status: %s", name, status))
}

func PortConflict(name, other string, port int) *KitError {
	return NewWithDetails(ErrPortConflict, "Port already in use by another instance",
		fmt.Sprintf("Instance: %s, Conflicts with: %s, Port: %d", name, other, port))
}

func AlreadyRunning(name string) *KitError {
	return NewWithDetails(ErrAlreadyRunning, "Instance is already running",
		fmt.Sprintf("Instance: %s", name))
}

func ConfirmRequired(name string) *KitError {
	return NewWithDetails(ErrInvalidInput, "Instance has save data; deletion requires confirmation",
		fmt.Sprintf("Instance: %s", name))
}

func InstanceNotFound(name string) *KitError {
	return NewWithDetails(ErrNotFound, "Instance not found",
		fmt.Sprintf("Instance: %s", name))
}

// Configuration Errors

func ConfigParse(file string, line int, cause error) *KitError {
	return WrapWithDetails(ErrConfigParse, "Failed to parse config file",
		fmt.Sprintf("File: %s, Line: %d", file, line), cause)
}

func ConfigNotFound(path string) *KitError {
	return NewWithDetails(ErrConfigNotFound, "Configuration file not found",
		fmt.Sprintf("Path: %s", path))
}

func ConfigInvalid(reason string) *KitError {
	return NewWithDetails(ErrConfigInvalid, "Invalid configuration", reason)
}

// Process Errors

func LaunchFailed(name, shard string, cause error) *KitError {
	return WrapWithDetails(ErrLaunchFailed, "Failed to launch server process",
		fmt.Sprintf("Instance: %s, Shard: %s", name, shard), cause)
}

func ProcessCrashed(name, shard string, exitCode int) *KitError {
	return NewWithDetails(ErrProcessCrashed, "Server process exited unexpectedly",
		fmt.Sprintf("Instance: %s, Shard: %s, ExitCode: %d", name, shard, exitCode))
}

func BinaryMissing(path string) *KitError {
	return NewWithDetails(ErrBinaryMissing, "Dedicated server binary not found",
		fmt.Sprintf("Path: %s", path))
}

func StartTimeout(name string, timeout interface{}) *KitError {
	return NewWithDetails(ErrTimeout, "Instance did not report liveness in time",
		fmt.Sprintf("Instance: %s, Timeout: %v", name, timeout))
}

func Cancelled(operation string) *KitError {
	return NewWithDetails(ErrCancelled, "Operation cancelled",
		fmt.Sprintf("Operation: %s", operation))
}

// Import Errors

func ImportFailed(item string, cause error) *KitError {
	return WrapWithDetails(ErrImportFailed, "Import failed",
		fmt.Sprintf("Item: %s", item), cause)
}

// Database Errors

func DatabaseConnectionError(cause error) *KitError {
	return Wrap(ErrDatabaseConnection, "Database connection failed", cause)
}

func DatabaseQueryError(query string, cause error) *KitError {
	return WrapWithDetails(ErrDatabaseQuery, "Database query failed",
		fmt.Sprintf("Query: %s", query), cause)
}

func DatabaseMigrationError(cause error) *KitError {
	return Wrap(ErrDatabaseMigration, "Database migration failed", cause)
}

// Internal Errors

func InternalError(details string, cause error) *KitError {
	if cause != nil {
		return WrapWithDetails(ErrInternal, "Internal error", details, cause)
	}
	return NewWithDetails(ErrInternal, "Internal error", details)
}
