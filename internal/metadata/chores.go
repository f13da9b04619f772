package metadata

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/roach88/metadeploy/internal/chore"
	"github.com/roach88/metadeploy/internal/ir"
)

// PruneRoleReferencesID identifies the built-in reference cleanup chore.
const PruneRoleReferencesID = "metadata.prune-role-references"

// PruneRoleReferences returns a chore that drops inherited roles and
// privileges that no longer exist from every stored role. Purges cascade on
// their own; the chore cleans up rows left dangling by older deployments.
func PruneRoleReferences(objects Objects) chore.Chore {
	return chore.Func{
		Name: PruneRoleReferencesID,
		Run: func(ctx context.Context, out io.Writer) error {
			return pruneRoleReferences(ctx, objects, out)
		},
	}
}

// Chores returns the built-in chores in the order they should run.
func Chores(objects Objects) []chore.Chore {
	return []chore.Chore{PruneRoleReferences(objects)}
}

func pruneRoleReferences(ctx context.Context, objects Objects, out io.Writer) error {
	roles, err := objects.List(ctx, TypeRole)
	if err != nil {
		return err
	}

	pruned := 0
	for _, obj := range roles {
		role := obj.(*Role)
		keepRoles, err := existingNames(ctx, objects, TypeRole, role.InheritedRoles)
		if err != nil {
			return err
		}
		keepPrivs, err := existingNames(ctx, objects, TypePrivilege, role.Privileges)
		if err != nil {
			return err
		}
		if slices.Equal(keepRoles, role.InheritedRoles) && slices.Equal(keepPrivs, role.Privileges) {
			continue
		}
		role.InheritedRoles, role.Privileges = keepRoles, keepPrivs
		if err := objects.Put(role.Name, role); err != nil {
			return err
		}
		pruned++
		fmt.Fprintf(out, "pruned references of role %s\n", role.Name)
	}
	fmt.Fprintf(out, "%d of %d roles updated\n", pruned, len(roles))
	return nil
}

func existingNames(ctx context.Context, objects Objects, t ir.Type, names []string) ([]string, error) {
	var keep []string
	for _, name := range names {
		found, err := objects.Get(ctx, t, name)
		if err != nil {
			return nil, err
		}
		if found != nil {
			keep = append(keep, name)
		}
	}
	return keep, nil
}
