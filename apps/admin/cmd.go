package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/campusdesk/core/admin"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	adminSvc admin.Service
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose migration command (up, down, status, redo...)")
	fmt.Fprintln(cli.out, "  createsuperadmin -email EMAIL [-name NAME] - create the super admin; the password will be prompted")
	fmt.Fprintln(cli.out, "  seedadmins - create the predefined admin accounts and print their temporary passwords")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset an admin's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	superAdminCmd := flag.NewFlagSet("createsuperadmin", flag.ContinueOnError)
	superAdminCmd.SetOutput(cli.out)
	superAdminEmail := superAdminCmd.String("email", "", "The super admin's email (used to sign in).")
	superAdminName := superAdminCmd.String("name", "", "The super admin's display name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The admin's username or email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "createsuperadmin":
		if err := superAdminCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *superAdminEmail == "" {
			superAdminCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			superAdminCmd.Usage()
			return errHelp
		}
		return cli.createSuperAdmin(*superAdminEmail, *superAdminName, pwd)

	case "seedadmins":
		return cli.seedAdmins()

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
