// Package main provides a CLI tool for working with Finnish personal identity
// codes during development: generating test codes, inspecting codes, and
// creating admin credentials for the API.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"hetu/pkg/henkilotunnus"
	"hetu/pkg/secrets"
)

const (
	// Generated birth dates fall in this age range unless -date is given.
	minGeneratedAge = 18
	maxGeneratedAge = 80
)

type codeOutput struct {
	Code        string `json:"code"`
	BirthDate   string `json:"birth_date"`
	Sex         string `json:"sex"`
	Age         int    `json:"age"`
	Adult       bool   `json:"adult"`
	SubjectHash string `json:"subject_hash"`
}

type inspectOutput struct {
	Code        string `json:"code"`
	Valid       bool   `json:"valid"`
	Reason      string `json:"reason,omitempty"`
	BirthDate   string `json:"birth_date,omitempty"`
	Sex         string `json:"sex,omitempty"`
	Age         *int   `json:"age,omitempty"`
	Adult       *bool  `json:"adult,omitempty"`
	SubjectHash string `json:"subject_hash"`
}

type adminTokenOutput struct {
	Token string            `json:"token"`
	Hash  string            `json:"hash"`
	Usage map[string]string `json:"usage"`
}

func main() {
	// Subcommands
	generateCmd := flag.NewFlagSet("generate", flag.ExitOnError)
	inspectCmd := flag.NewFlagSet("inspect", flag.ExitOnError)
	adminCmd := flag.NewFlagSet("admin-token", flag.ExitOnError)

	// Generate flags
	generateDate := generateCmd.String("date", "", "Birth date (YYYY-MM-DD). Random adult date if empty.")
	generateSex := generateCmd.String("sex", "", "Sex (male or female). Random if empty.")
	generateCount := generateCmd.Int("count", 1, "Number of codes to generate")
	generateJSON := generateCmd.Bool("json", false, "Output as JSON")

	// Inspect flags
	inspectJSON := inspectCmd.Bool("json", false, "Output as JSON")

	// Admin token flags
	adminJSON := adminCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		generateCmd.Parse(os.Args[2:])
		generateCodes(*generateDate, *generateSex, *generateCount, *generateJSON)
	case "inspect":
		inspectCmd.Parse(os.Args[2:])
		if inspectCmd.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "inspect requires an identity code argument")
			os.Exit(1)
		}
		inspectCode(inspectCmd.Arg(0), *inspectJSON)
	case "admin-token":
		adminCmd.Parse(os.Args[2:])
		generateAdminToken(*adminJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hetugen - Work with Finnish personal identity codes

WARNING: Generated codes use the official 900-999 test individual-number
         range. They are structurally valid but never issued to real people.

Usage:
  hetugen <command> [flags]

Commands:
  generate     Generate valid test identity codes
  inspect      Parse an identity code and show its decoded attributes
  admin-token  Generate an API admin token and its bcrypt hash

Examples:
  # Generate one random adult test code
  hetugen generate

  # Generate ten codes for a specific birth date
  hetugen generate -date 1998-06-15 -count 10

  # Generate a female test code as JSON
  hetugen generate -sex female -json

  # Inspect a code
  hetugen inspect 150698-985K

  # Create admin credentials for the purge endpoint
  hetugen admin-token

Use "hetugen <command> -h" for more information about a command.`)
}

func generateCodes(date, sex string, count int, jsonOutput bool) {
	if count < 1 {
		fmt.Fprintln(os.Stderr, "count must be at least 1")
		os.Exit(1)
	}

	now := time.Now().UTC()
	outputs := make([]codeOutput, 0, count)
	for i := 0; i < count; i++ {
		birthDate, err := resolveBirthDate(date, now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -date: %v\n", err)
			os.Exit(1)
		}
		resolvedSex, err := resolveSex(sex)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -sex: %v\n", err)
			os.Exit(1)
		}

		id, err := henkilotunnus.Generate(birthDate, resolvedSex, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating code: %v\n", err)
			os.Exit(1)
		}

		outputs = append(outputs, codeOutput{
			Code:        id.String(),
			BirthDate:   id.BirthDate().Format("2006-01-02"),
			Sex:         string(id.Sex()),
			Age:         henkilotunnus.Age(id.BirthDate(), now),
			Adult:       henkilotunnus.IsAdult(id.BirthDate(), now),
			SubjectHash: henkilotunnus.HashCode(id.String()),
		})
	}

	if jsonOutput {
		printJSON(outputs)
		return
	}

	fmt.Println("Test Identity Codes")
	fmt.Println("===================")
	for _, out := range outputs {
		fmt.Printf("%s  born %s  %s  age %d\n", out.Code, out.BirthDate, out.Sex, out.Age)
	}
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  curl -X POST -H \"Content-Type: application/json\" \\\n")
	fmt.Printf("    -d '{\"identity_code\": \"%s\"}' http://localhost:8080/v1/verifications\n", outputs[0].Code)
}

func inspectCode(rawCode string, jsonOutput bool) {
	out := inspectOutput{
		Code:        rawCode,
		SubjectHash: henkilotunnus.HashCode(rawCode),
	}

	id, err := henkilotunnus.Parse(rawCode)
	if err != nil {
		out.Reason = classifyFailure(err)
	} else {
		now := time.Now().UTC()
		age := henkilotunnus.Age(id.BirthDate(), now)
		adult := henkilotunnus.IsAdult(id.BirthDate(), now)
		out.Valid = true
		out.BirthDate = id.BirthDate().Format("2006-01-02")
		out.Sex = string(id.Sex())
		out.Age = &age
		out.Adult = &adult
	}

	if jsonOutput {
		printJSON(out)
		return
	}

	fmt.Println("Identity Code")
	fmt.Println("=============")
	fmt.Printf("Code:         %s\n", out.Code)
	if out.Valid {
		fmt.Println("Valid:        yes")
		fmt.Printf("Birth Date:   %s\n", out.BirthDate)
		fmt.Printf("Sex:          %s\n", out.Sex)
		fmt.Printf("Age:          %d\n", *out.Age)
		fmt.Printf("Adult:        %t\n", *out.Adult)
	} else {
		fmt.Println("Valid:        no")
		fmt.Printf("Reason:       %s\n", out.Reason)
	}
	fmt.Printf("Subject Hash: %s\n", out.SubjectHash)
}

func generateAdminToken(jsonOutput bool) {
	token, err := secrets.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}
	hash, err := secrets.Hash(token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(adminTokenOutput{
			Token: token,
			Hash:  hash,
			Usage: map[string]string{
				"header": "X-Admin-Token: " + token,
				"env":    "ADMIN_TOKEN_HASH=" + hash,
			},
		})
		return
	}

	fmt.Println("Admin API Token")
	fmt.Println("===============")
	fmt.Printf("Token: %s\n", token)
	fmt.Printf("Hash:  %s\n", hash)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  # Server side: configure the hash, never the token")
	fmt.Println("  export ADMIN_TOKEN_HASH='" + hash + "'")
	fmt.Println()
	fmt.Println("  # Client side: present the token")
	fmt.Println("  curl -X POST -H \"X-Admin-Token: " + token + "\" \\")
	fmt.Println("    http://localhost:8080/v1/admin/cache/purge")
}

// resolveBirthDate parses -date or draws a random adult birth date.
func resolveBirthDate(date string, now time.Time) (time.Time, error) {
	if date != "" {
		return time.Parse("2006-01-02", date)
	}
	ageYears := minGeneratedAge + rand.IntN(maxGeneratedAge-minGeneratedAge+1)
	dayOffset := rand.IntN(365)
	return now.AddDate(-ageYears, 0, -dayOffset), nil
}

func resolveSex(sex string) (henkilotunnus.Sex, error) {
	switch sex {
	case "male":
		return henkilotunnus.SexMale, nil
	case "female":
		return henkilotunnus.SexFemale, nil
	case "":
		if rand.IntN(2) == 0 {
			return henkilotunnus.SexFemale, nil
		}
		return henkilotunnus.SexMale, nil
	default:
		return "", fmt.Errorf("must be male or female, got %q", sex)
	}
}

// classifyFailure maps parse errors to the reason vocabulary the API uses.
func classifyFailure(err error) string {
	switch {
	case errors.Is(err, henkilotunnus.ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, henkilotunnus.ErrInvalidBirthDate):
		return "birth_date"
	default:
		return "format"
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
