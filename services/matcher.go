package services

import (
	"strings"

	"skillswap_server/models"
)

// Matching rules, applied in order against each candidate:
//
//  1. Mutual swap: both sides filled on both requests, and the new
//     request's skill equals the candidate's want while the new
//     request's want equals the candidate's skill.
//  2. Cross match, requester offers only: the new request has a skill
//     and no want, the candidate has a want and no skill, and they
//     name the same thing.
//  3. Cross match, requester wants only: the mirror image of rule 2.
//
// Comparison is case-insensitive with surrounding whitespace ignored.

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FindOneMatch scans the pending requests newest-first and returns the
// first candidate compatible with newReq, skipping the requester's own
// entries. No match is a normal result, not an error. The function is
// pure: it never mutates its inputs and is deterministic.
func FindOneMatch(newReq models.SkillRequest, pending []models.SkillRequest) (models.SkillRequest, bool) {
	newSkill := normalizeSkill(newReq.Skill)
	newWant := normalizeSkill(newReq.Want)

	for i := len(pending) - 1; i >= 0; i-- {
		candidate := pending[i]
		if candidate.UserID == newReq.UserID {
			continue // never match a user against themselves
		}

		otherSkill := normalizeSkill(candidate.Skill)
		otherWant := normalizeSkill(candidate.Want)

		// Rule 1: both filled, mutual exact swap
		if newSkill != "" && newWant != "" && otherSkill != "" && otherWant != "" {
			if newSkill == otherWant && newWant == otherSkill {
				return candidate, true
			}
		}

		// Rule 2: requester offers only, candidate wants only
		if newSkill != "" && newWant == "" && otherSkill == "" && otherWant != "" {
			if newSkill == otherWant {
				return candidate, true
			}
		}

		// Rule 3: requester wants only, candidate offers only
		if newSkill == "" && newWant != "" && otherSkill != "" && otherWant == "" {
			if newWant == otherSkill {
				return candidate, true
			}
		}
	}

	return models.SkillRequest{}, false
}
