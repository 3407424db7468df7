// Package view derives what the client may show and renders it as text.
//
// Compose maps a role to the set of surfaces it unlocks; Paginate computes
// the page-button window for paginated lists. Both are pure functions of
// their inputs so the controller can re-run them on every dashboard entry.
package view

import (
	"slices"
	"strings"

	"github.com/me/logshack/pkg/model"
)

// Surface names a screen area or command group the client can expose.
type Surface string

const (
	SurfaceLogin        Surface = "login"
	SurfaceRegister     Surface = "register"
	SurfaceLogs         Surface = "logs"
	SurfaceUpload       Surface = "upload"
	SurfaceAPIKeys      Surface = "api-keys"
	SurfaceSettings     Surface = "settings"
	SurfaceContestList  Surface = "contest-list"
	SurfaceContestAdmin Surface = "contest-admin"
	SurfaceLogAdmin     Surface = "log-admin"
	SurfaceSysop        Surface = "sysop"
)

// userSurfaces are granted to every authenticated role.
var userSurfaces = []Surface{
	SurfaceLogs, SurfaceUpload, SurfaceAPIKeys, SurfaceSettings, SurfaceContestList,
}

// roleSurfaces lists the admin surfaces each role unlocks. Sysop names every
// admin surface explicitly rather than inheriting them.
var roleSurfaces = map[model.Role][]Surface{
	model.RoleUser:         nil,
	model.RoleContestAdmin: {SurfaceContestAdmin},
	model.RoleLogAdmin:     {SurfaceLogAdmin},
	model.RoleSysop:        {SurfaceContestAdmin, SurfaceLogAdmin, SurfaceSysop},
}

// entrySurfaces are the only surfaces an unauthenticated client sees.
var entrySurfaces = []Surface{SurfaceLogin, SurfaceRegister}

// SurfaceSet is an immutable set of visible surfaces.
type SurfaceSet struct {
	items map[Surface]bool
}

func newSet(lists ...[]Surface) SurfaceSet {
	s := SurfaceSet{items: map[Surface]bool{}}
	for _, l := range lists {
		for _, v := range l {
			s.items[v] = true
		}
	}
	return s
}

// Compose returns the surfaces visible for role. An unauthenticated client
// only gets the entry screens; unknown roles are treated as model.RoleUser.
func Compose(role model.Role, authenticated bool) SurfaceSet {
	if !authenticated {
		return newSet(entrySurfaces)
	}
	return newSet(userSurfaces, roleSurfaces[model.ParseRole(string(role))])
}

// Has reports whether s is visible.
func (s SurfaceSet) Has(v Surface) bool {
	return s.items[v]
}

// List returns the surfaces in stable order.
func (s SurfaceSet) List() []Surface {
	out := make([]Surface, 0, len(s.items))
	for v := range s.items {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of visible surfaces.
func (s SurfaceSet) Len() int {
	return len(s.items)
}

// Equal reports whether both sets hold the same surfaces.
func (s SurfaceSet) Equal(o SurfaceSet) bool {
	return slices.Equal(s.List(), o.List())
}

func (s SurfaceSet) String() string {
	names := make([]string, 0, len(s.items))
	for _, v := range s.List() {
		names = append(names, string(v))
	}
	return strings.Join(names, ",")
}
