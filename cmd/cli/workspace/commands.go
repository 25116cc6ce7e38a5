package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	workspacesvc "github.com/temirov/wsm/internal/workspace"
)

const (
	initUseConstant              = "init <source>"
	initShortDescriptionConstant = "Initialize a workspace from its repositories, a manifest repository or a manifest URL"
	initLongDescriptionConstant  = "init prepares the manifest directory. \".\" records the repositories already present as the main manifest; a URL ending in .git is cloned and its *.yaml files become the stored manifests; any other URL is downloaded as one manifest whose repositories are then cloned and checked out."

	createUseConstant              = "create <name>"
	createShortDescriptionConstant = "Record every repository in the workspace as a new manifest"

	addUseConstant              = "add <path>"
	addShortDescriptionConstant = "Add a repository to the current manifest"

	deleteUseConstant              = "delete <name>"
	deleteShortDescriptionConstant = "Delete a stored manifest other than the current one"

	listUseConstant              = "list"
	listShortDescriptionConstant = "List stored manifests"

	branchUseConstant              = "branch <name>"
	branchShortDescriptionConstant = "Create a branch in every repository"
	branchLongDescriptionConstant  = "branch creates the named branch in every repository of the current manifest. A name starting with + extends each repository's current ref: +hotfix on main creates main+hotfix."

	checkoutUseConstant              = "checkout <manifest>"
	checkoutShortDescriptionConstant = "Switch to a manifest and check out its refs, cloning missing repositories"

	mergeUseConstant              = "merge <manifest>"
	mergeShortDescriptionConstant = "Merge the refs of another manifest into the workspace"

	statusUseConstant              = "status"
	statusShortDescriptionConstant = "Show the status of every repository"

	updateUseConstant              = "update"
	updateShortDescriptionConstant = "Record the current url and ref of every repository in the current manifest"

	tagUseConstant              = "tag <name>"
	tagShortDescriptionConstant = "Create a tag in every repository"

	execUseConstant              = "exec <command> [arguments...]"
	execShortDescriptionConstant = "Run a command in every repository"

	flagCreateManifestNameConstant        = "create"
	flagCreateManifestDescriptionConstant = "Store a manifest named after the branch and switch to it"
	flagUpdateManifestNameConstant        = "update"
	flagUpdateManifestDescriptionConstant = "Record the new branches in the current manifest"

	repositoryAddedTemplateConstant   = "added %s (%s)\n"
	manifestDeletedTemplateConstant   = "deleted %s\n"
	manifestListingTemplateConstant   = "%s %s\n"
	currentManifestMarkerConstant     = "*"
	otherManifestMarkerConstant       = " "
	manifestsImportedTemplateConstant = "manifests: %s (current: %s)\n"
	manifestNamesSeparatorConstant    = ", "
)

func (builder *CommandBuilder) buildInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   initUseConstant,
		Short: initShortDescriptionConstant,
		Long:  initLongDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			service, serviceError := builder.newService(command.Context())
			if serviceError != nil {
				return serviceError
			}
			initResult, initError := service.Init(command.Context(), arguments[0])
			if initError != nil {
				return initError
			}
			if reportError := printReport(command, initResult.Report); reportError != nil {
				return reportError
			}
			_, printError := fmt.Fprintf(command.ErrOrStderr(), manifestsImportedTemplateConstant, strings.Join(initResult.Manifests, manifestNamesSeparatorConstant), initResult.State.CurrentManifestName)
			return printError
		},
	}
}

func (builder *CommandBuilder) buildCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   createUseConstant,
		Short: createShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			service, serviceError := builder.newService(command.Context())
			if serviceError != nil {
				return serviceError
			}
			_, report, createError := service.Create(command.Context(), arguments[0])
			if createError != nil {
				return createError
			}
			return printReport(command, report)
		},
	}
}

func (builder *CommandBuilder) buildAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   addUseConstant,
		Short: addShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			service, state, stateError := builder.loadState(command.Context())
			if stateError != nil {
				return stateError
			}
			repositoryDirectory, absoluteError := filepath.Abs(arguments[0])
			if absoluteError != nil {
				return absoluteError
			}
			entry, addError := service.Add(command.Context(), state, repositoryDirectory)
			if addError != nil {
				return addError
			}
			_, printError := fmt.Fprintf(command.OutOrStdout(), repositoryAddedTemplateConstant, entry.Path, entry.URL)
			return printError
		},
	}
}

func (builder *CommandBuilder) buildDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   deleteUseConstant,
		Short: deleteShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			service, state, stateError := builder.loadState(command.Context())
			if stateError != nil {
				return stateError
			}
			if deleteError := service.Delete(state, arguments[0]); deleteError != nil {
				return deleteError
			}
			_, printError := fmt.Fprintf(command.OutOrStdout(), manifestDeletedTemplateConstant, arguments[0])
			return printError
		},
	}
}

func (builder *CommandBuilder) buildListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   listUseConstant,
		Short: listShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			service, state, stateError := builder.loadState(command.Context())
			if stateError != nil {
				return stateError
			}
			listings, listError := service.List(state)
			if listError != nil {
				return listError
			}
			for _, listing := range listings {
				marker := otherManifestMarkerConstant
				if listing.Current {
					marker = currentManifestMarkerConstant
				}
				if _, printError := fmt.Fprintf(command.OutOrStdout(), manifestListingTemplateConstant, marker, listing.Name); printError != nil {
					return printError
				}
			}
			return nil
		},
	}
}

func (builder *CommandBuilder) buildBranchCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   branchUseConstant,
		Short: branchShortDescriptionConstant,
		Long:  branchLongDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			service, state, stateError := builder.loadState(command.Context())
			if stateError != nil {
				return stateError
			}
			createManifest, _ := command.Flags().GetBool(flagCreateManifestNameConstant)
			updateManifest, _ := command.Flags().GetBool(flagUpdateManifestNameConstant)

			_, report, branchError := service.Branch(command.Context(), state, workspacesvc.BranchOptions{
				Name:           arguments[0],
				CreateManifest: createManifest,
				UpdateManifest: updateManifest,
			})
			if branchError != nil {
				return branchError
			}
			return printReport(command, report)
		},
	}
	command.Flags().Bool(flagCreateManifestNameConstant, false, flagCreateManifestDescriptionConstant)
	command.Flags().Bool(flagUpdateManifestNameConstant, false, flagUpdateManifestDescriptionConstant)
	return command
}

func (builder *CommandBuilder) buildCheckoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   checkoutUseConstant,
		Short: checkoutShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			service, state, stateError := builder.loadState(command.Context())
			if stateError != nil {
				return stateError
			}
			_, report, checkoutError := service.Checkout(command.Context(), state, arguments[0])
			if checkoutError != nil {
				return checkoutError
			}
			return printReport(command, report)
		},
	}
}

func (builder *CommandBuilder) buildMergeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   mergeUseConstant,
		Short: mergeShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			service, state, stateError := builder.loadState(command.Context())
			if stateError != nil {
				return stateError
			}
			report, mergeError := service.Merge(command.Context(), state, arguments[0])
			if mergeError != nil {
				return mergeError
			}
			return printReport(command, report)
		},
	}
}

func (builder *CommandBuilder) buildStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   statusUseConstant,
		Short: statusShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			service, state, stateError := builder.loadState(command.Context())
			if stateError != nil {
				return stateError
			}
			report, statusError := service.Status(command.Context(), state)
			if statusError != nil {
				return statusError
			}
			return printReport(command, report)
		},
	}
}

func (builder *CommandBuilder) buildUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   updateUseConstant,
		Short: updateShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			service, state, stateError := builder.loadState(command.Context())
			if stateError != nil {
				return stateError
			}
			report, updateError := service.Update(command.Context(), state)
			if updateError != nil {
				return updateError
			}
			return printReport(command, report)
		},
	}
}

func (builder *CommandBuilder) buildTagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   tagUseConstant,
		Short: tagShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			service, state, stateError := builder.loadState(command.Context())
			if stateError != nil {
				return stateError
			}
			report, tagError := service.Tag(command.Context(), state, arguments[0])
			if tagError != nil {
				return tagError
			}
			return printReport(command, report)
		},
	}
}

func (builder *CommandBuilder) buildExecCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   execUseConstant,
		Short: execShortDescriptionConstant,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			service, state, stateError := builder.loadState(command.Context())
			if stateError != nil {
				return stateError
			}
			report, execError := service.Exec(command.Context(), state, arguments[0], arguments[1:])
			if execError != nil {
				return execError
			}
			return printReport(command, report)
		},
	}
	command.Flags().SetInterspersed(false)
	return command
}
