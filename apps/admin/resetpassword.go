package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetPassword(login, pwd string) error {
	if err := cli.adminSvc.ResetPassword(context.Background(), login, pwd); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "password reset; it must be changed on next login")
	return nil
}
