package language

// Template returns the canonical starting source for l. A session switching to
// l is reset to exactly this text.
func Template(l Language) string {
	return templates[l]
}

// FaultySample returns a snippet with a deliberate, well-known error, used to
// exercise the correction pipeline deterministically.
func FaultySample(l Language) (string, error) {
	s, ok := faulty[l]
	if !ok {
		return "", ErrNoSample
	}
	return s, nil
}

var templates = map[Language]string{
	JavaScript: "// Example with user input\n" +
		"const readline = require('readline').createInterface({\n" +
		"  input: process.stdin,\n" +
		"  output: process.stdout\n" +
		"});\n" +
		"\n" +
		"readline.question('What is your name? ', name => {\n" +
		"  console.log(`Hello, ${name}!`);\n" +
		"  readline.close();\n" +
		"});",

	TypeScript: "// Example with user input\n" +
		"const readline = require('readline').createInterface({\n" +
		"  input: process.stdin,\n" +
		"  output: process.stdout\n" +
		"});\n" +
		"\n" +
		"readline.question('What is your name? ', (name: string) => {\n" +
		"  console.log(`Hello, ${name}!`);\n" +
		"  readline.close();\n" +
		"});",

	Python: `# Example with user input
name = input("What is your name? ")
print(f"Hello, {name}!")`,

	Java: `import java.util.Scanner;

public class Main {
  public static void main(String[] args) {
    Scanner scanner = new Scanner(System.in);
    System.out.print("What is your name? ");
    String name = scanner.nextLine();
    System.out.println("Hello, " + name + "!");
    scanner.close();
  }
}`,

	CSharp: `using System;

namespace UserInputExample
{
  class Program { 
    static void Main(string[] args) {
      Console.Write("What is your name? ");
      string name = Console.ReadLine();
      Console.WriteLine($"Hello, {name}!");
    }
  }
}`,

	PHP: `<?php
echo "What is your name? ";
$name = trim(fgets(STDIN));
echo "Hello, " . $name . "!\n";
?>`,

	CPP: `#include <iostream>
#include <string>

int main() {
  std::string name;
  std::cout << "What is your name? ";
  std::getline(std::cin, name);
  std::cout << "Hello, " << name << "!" << std::endl;
  return 0;
}`,
}

var faulty = map[Language]string{
	JavaScript: `// This has a syntax error
function calculateSum(a, b) {
  let result = a + b
  console.log("The sum is: " + result
  return result;
}

calculateSum(5, 10);`,

	Python: `# This has an indentation error
def calculate_sum(a, b):
    result = a + b
print("The sum is:", result)  # Wrong indentation
    return result

calculate_sum(5, 10)`,

	Java: `// This has a missing semicolon
public class Main {
  public static void main(String[] args) {
    int a = 5;
    int b = 10
    int sum = a + b;
    System.out.println("The sum is: " + sum);
  }
}`,

	CPP: "// This has a missing closing bracket\n" +
		"#include <iostream>\n" +
		"\n" +
		"int main() {\n" +
		"  int a = 5;\n" +
		"  int b = 10;\n" +
		"  \n" +
		"  if (a < b) {\n" +
		"    std::cout << \"a is less than b\" << std::endl;\n" +
		"  \n" +
		"  std::cout << \"The sum is: \" << a + b << std::endl;\n" +
		"  return 0;\n" +
		"}",
}
