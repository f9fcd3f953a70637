package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"exam:view",
		"attempt:create",
		"attempt:submit",
		"attempt:view-own",
	},
	"teacher": {
		"exam:create",
		"exam:view",
		"bank:import",
		"bank:view",
		"attempt:view-all",
		"asset:write",
	},
	"admin": {
		"*", // everything
	},
}
