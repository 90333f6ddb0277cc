package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) createSuperAdmin(email, name, pwd string) error {
	adm, err := cli.adminSvc.CreateSuperAdmin(context.Background(), email, name, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "super admin %s created\n", adm.Email)
	return nil
}

// seedAdmins prints the temporary password of each created account; existing accounts are left untouched.
func (cli *commandLine) seedAdmins() error {
	seeded, err := cli.adminSvc.Seed(context.Background())
	for _, s := range seeded {
		fmt.Fprintf(cli.out, "%-12s %-10s %s\n", s.Admin.Username, s.Admin.Level, s.Password)
	}
	if err != nil {
		return err
	}
	if len(seeded) == 0 {
		fmt.Fprintln(cli.out, "all admin accounts already exist")
	}
	return nil
}
