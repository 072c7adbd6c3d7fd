package access

import "shiptrack/internal/stage"

type cell struct {
	role  Role
	stage stage.Stage
}

// editable lists every (role, stage) pair that may write stage data. Anything
// missing is denied. The admin override is handled before the lookup.
var editable = map[cell]bool{
	{RoleSubadmin, stage.Stage1}: true,
	{RoleSubadmin, stage.Stage2}: true,
	{RoleSubadmin, stage.Stage3}: true,
	{RoleSubadmin, stage.Stage4}: true,

	{RoleStage1Employee, stage.Stage1}: true,
	{RoleStage2Employee, stage.Stage2}: true,
	{RoleStage3Employee, stage.Stage3}: true,
	{RoleCustomer, stage.Stage4}:       true,
}

// CanEdit reports whether user may write data for the given stage.
// The completed stage is never editable.
func CanEdit(user User, s stage.Stage) bool {
	if !s.HasData() {
		return false
	}
	if user.Admin() {
		return true
	}
	return editable[cell{user.Role, s}]
}

// IsSupervisor reports whether user may advance any stage and change job status.
func IsSupervisor(user User) bool {
	return user.Admin() || user.Role == RoleSubadmin
}

// CanAdvance reports whether user may move a job out of its current stage.
func CanAdvance(user User, current stage.Stage) bool {
	return CanEdit(user, current) || IsSupervisor(user)
}

// EditableStages returns the data stages user may write, in lifecycle order.
func EditableStages(user User) []stage.Stage {
	var out []stage.Stage
	for _, s := range stage.DataStages() {
		if CanEdit(user, s) {
			out = append(out, s)
		}
	}
	return out
}
