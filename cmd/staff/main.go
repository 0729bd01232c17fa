package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vozcidada/gateway/internal/auth"
	"github.com/vozcidada/gateway/internal/backend"
	"github.com/vozcidada/gateway/internal/staff"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	baseURL := strings.TrimSpace(os.Getenv("BACKEND_URL"))
	if baseURL == "" {
		log.Fatal().Msg("defina BACKEND_URL")
	}
	api, err := backend.New(backend.Config{BaseURL: baseURL})
	if err != nil {
		log.Fatal().Err(err).Msg("cliente do backend inválido")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := loginAdmin(ctx, api)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível autenticar o administrador")
	}
	service := staff.NewService(api)

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "create":
		if err := runCreate(ctx, service, admin, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar funcionário")
		}
	case "list":
		if err := runList(ctx, service, admin, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao listar funcionários")
		}
	case "delete":
		if err := runDelete(ctx, service, admin, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao remover funcionário")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "staff CLI (credenciais do administrador em ADMIN_LOGIN e ADMIN_PASSWORD)")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  staff create --email fiscal@prefeitura.gov.br --senha segredo --cpf 000.000.000-00 --cargo \"Fiscal de obras\" --secretaria OBRAS")
	fmt.Fprintln(os.Stderr, "  staff list [--page 0] [--size 20]")
	fmt.Fprintln(os.Stderr, "  staff delete <id>")
}

func loginAdmin(ctx context.Context, api *backend.Client) (staff.Admin, error) {
	login := strings.TrimSpace(os.Getenv("ADMIN_LOGIN"))
	password := os.Getenv("ADMIN_PASSWORD")
	if login == "" || password == "" {
		return staff.Admin{}, errors.New("ADMIN_LOGIN e ADMIN_PASSWORD são obrigatórios")
	}
	pair, err := api.Login(ctx, backend.Credentials{Login: login, Password: password})
	if err != nil {
		return staff.Admin{}, err
	}
	claims, err := auth.Decode(pair.AccessToken, time.Now())
	if err != nil {
		return staff.Admin{}, err
	}
	roles := claims.RoleSet()
	if !roles.IsElevated() {
		return staff.Admin{}, fmt.Errorf("%s não é administrador", login)
	}
	return staff.Admin{Token: pair.AccessToken, Roles: roles}, nil
}

func runCreate(ctx context.Context, service *staff.Service, admin staff.Admin, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var form staff.CreateForm
	fs.StringVar(&form.Email, "email", "", "login do novo funcionário")
	fs.StringVar(&form.Senha, "senha", "", "senha inicial (mínimo 6 caracteres)")
	fs.StringVar(&form.CPF, "cpf", "", "CPF com ou sem máscara")
	fs.StringVar(&form.Cargo, "cargo", "", "cargo exibido")
	fs.StringVar(&form.Secretaria, "secretaria", "", "OBRAS ou URBANISMO")

	if err := fs.Parse(args); err != nil {
		return err
	}

	created, err := service.Create(ctx, admin, form)
	if err != nil {
		return err
	}

	output, _ := json.MarshalIndent(created, "", "  ")
	fmt.Println(string(output))
	return nil
}

func runList(ctx context.Context, service *staff.Service, admin staff.Admin, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	page := fs.Int("page", 0, "página (começa em 0)")
	size := fs.Int("size", 20, "itens por página")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := service.List(ctx, admin, *page, *size)
	if err != nil {
		return err
	}

	if len(result.Items) == 0 {
		fmt.Println("nenhum funcionário cadastrado")
		return nil
	}

	encoded, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(encoded))
	return nil
}

func runDelete(ctx context.Context, service *staff.Service, admin staff.Admin, args []string) error {
	if len(args) != 1 {
		return errors.New("informe o id do funcionário")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return errors.New("id inválido")
	}
	if err := service.Delete(ctx, admin, id); err != nil {
		return err
	}
	fmt.Printf("funcionário %d removido\n", id)
	return nil
}
