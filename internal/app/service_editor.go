package app

import (
	"context"
	"net/http"

	"knowledgebase/internal/blocks"
)

// EditorActionInput carries the target of an editor-state action. Block is
// used by edit and toggle-section, List and Entry by select-entry.
type EditorActionInput struct {
	Block string `json:"block"`
	List  string `json:"list"`
	Entry string `json:"entry"`
}

// EditorState returns the caller's view state for a document, dropping
// references to blocks that no longer exist.
func (s *Service) EditorState(ctx context.Context, session Session, documentID string) (blocks.ViewState, error) {
	_, tree, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return blocks.ViewState{}, err
	}
	return s.loadEditorState(ctx, session, documentID, tree)
}

func (s *Service) SaveEditorState(ctx context.Context, session Session, documentID string, state blocks.ViewState) (blocks.ViewState, error) {
	_, tree, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return blocks.ViewState{}, err
	}
	state = state.Prune(tree)
	if err := s.editor.Save(ctx, documentID, session.UserID, state); err != nil {
		return blocks.ViewState{}, err
	}
	return state, nil
}

// EditorAction applies one of edit, toggle-section or select-entry to the
// caller's view state.
func (s *Service) EditorAction(ctx context.Context, session Session, documentID, action string, in EditorActionInput) (blocks.ViewState, error) {
	_, tree, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return blocks.ViewState{}, err
	}
	state, err := s.loadEditorState(ctx, session, documentID, tree)
	if err != nil {
		return blocks.ViewState{}, err
	}

	switch action {
	case "edit":
		if in.Block != "" {
			if _, _, ok := blocks.Find(tree, in.Block); !ok {
				return blocks.ViewState{}, blockNotFound(in.Block)
			}
		}
		state = state.ToggleEdit(in.Block)
	case "toggle-section":
		block, _, ok := blocks.Find(tree, in.Block)
		if !ok {
			return blocks.ViewState{}, blockNotFound(in.Block)
		}
		if _, isSection := block.Content.(blocks.SectionContent); !isSection {
			return blocks.ViewState{}, domainError(http.StatusUnprocessableEntity, "NOT_A_SECTION", "Block is not a collapsible section", map[string]any{"blockId": in.Block})
		}
		state = state.ToggleSection(in.Block)
	case "select-entry":
		block, _, ok := blocks.Find(tree, in.List)
		if !ok {
			return blocks.ViewState{}, blockNotFound(in.List)
		}
		list, isList := block.Content.(blocks.EntryListContent)
		if !isList {
			return blocks.ViewState{}, domainError(http.StatusUnprocessableEntity, "NOT_AN_ENTRY_LIST", "Block is not an expandable content list", map[string]any{"blockId": in.List})
		}
		if !hasEntry(list, in.Entry) {
			return blocks.ViewState{}, domainError(http.StatusNotFound, "ENTRY_NOT_FOUND", "Entry not found", map[string]any{"entryId": in.Entry})
		}
		state = state.SelectEntry(in.List, in.Entry)
	default:
		return blocks.ViewState{}, domainError(http.StatusNotFound, "NOT_FOUND", "Unknown editor action", map[string]any{"action": action})
	}

	if err := s.editor.Save(ctx, documentID, session.UserID, state); err != nil {
		return blocks.ViewState{}, err
	}
	return state, nil
}

func (s *Service) loadEditorState(ctx context.Context, session Session, documentID string, tree []blocks.Block) (blocks.ViewState, error) {
	state, err := s.editor.Load(ctx, documentID, session.UserID)
	if err != nil {
		return blocks.ViewState{}.Prune(tree), err
	}
	return state.Prune(tree), nil
}

func hasEntry(list blocks.EntryListContent, entryID string) bool {
	for _, entry := range list.Entries {
		if entry.ID == entryID {
			return true
		}
	}
	return false
}

func blockNotFound(blockID string) error {
	return domainError(http.StatusNotFound, "BLOCK_NOT_FOUND", "Block not found", map[string]any{"blockId": blockID})
}
