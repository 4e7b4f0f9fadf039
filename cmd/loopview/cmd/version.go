package cmd

func init() {
	RegisterCommand(&Command{
		Name:  "version",
		Short: "Show version information",
		Long:  "Print the loopview version and build time.",
		Usage: "loopview version",
		Run: func([]string) error {
			printVersion()
			return nil
		},
	})
}
