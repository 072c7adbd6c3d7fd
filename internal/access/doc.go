// Package access owns users, roles, and the role by stage permission matrix.
//
// The matrix is a single lookup table keyed by (role, stage) with default
// deny. The is_admin flag and the admin role both grant every data stage.
// No stage may be edited once a job reaches completed.
package access
